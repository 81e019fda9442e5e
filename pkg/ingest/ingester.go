// Package ingest loads parsed document files into the store. A pool of
// workers decodes files and builds their in-memory structure in
// parallel; a single committer goroutine writes the finished documents,
// one transaction each, so concurrent loads never interleave partial
// state. Duplicate document URNs are handled per a configurable policy
// and a run-scoped registry keeps two workers from racing on the same
// URN.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pletcher/kodon/pkg/corpus"
	"github.com/pletcher/kodon/pkg/db"
	"github.com/pletcher/kodon/pkg/docfile"
	"github.com/pletcher/kodon/pkg/logging"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Policy decides what happens when an incoming document's URN is
// already committed.
type Policy int

const (
	// PolicyReject fails the document and leaves the store unchanged.
	PolicyReject Policy = iota
	// PolicyReplace swaps the stored document for the incoming one.
	PolicyReplace
	// PolicySkip leaves the stored document in place and counts the
	// incoming one as skipped.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicyReplace:
		return "replace"
	case PolicySkip:
		return "skip"
	default:
		return "reject"
	}
}

// ParsePolicy maps the flag/config spelling to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "reject":
		return PolicyReject, nil
	case "replace":
		return PolicyReplace, nil
	case "skip":
		return PolicySkip, nil
	default:
		return PolicyReject, fmt.Errorf("unknown duplicate policy %q (want reject, replace, or skip)", s)
	}
}

// dbPolicy maps the ingest policy onto the store's commit policy. Skip
// never reaches the store for an existing document; when the pre-check
// raced a concurrent insert the commit fails like reject.
func (p Policy) dbPolicy() db.DuplicatePolicy {
	if p == PolicyReplace {
		return db.PolicyReplace
	}
	return db.PolicyReject
}

// FileError records one failed file of a run.
type FileError struct {
	Path string
	Err  error
}

// Summary totals one ingestion run. Failures lists the failed files in
// completion order.
type Summary struct {
	Loaded   int
	Replaced int
	Skipped  int
	Failed   int
	Failures []FileError
}

// String renders the run totals on one line.
func (s Summary) String() string {
	return fmt.Sprintf("Loaded: %d, Replaced: %d, Skipped: %d, Errors: %d",
		s.Loaded, s.Replaced, s.Skipped, s.Failed)
}

// outcome classifies one successfully handled document.
type outcome int

const (
	outcomeLoaded outcome = iota
	outcomeReplaced
	outcomeSkipped
)

// Ingester loads documents into the store.
type Ingester struct {
	DB *sql.DB
	// Logger receives run and per-file progress. nil means no logging.
	Logger *logging.Logger
	// OnDuplicate applies to every document of the run.
	OnDuplicate Policy
	// OnProgress is called after each file finishes with the number of
	// completed files and the total.
	OnProgress func(done, total int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface

	// In-flight document URNs of this ingester, across all of its runs.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB) *Ingester {
	return &Ingester{
		DB:          conn,
		OnDuplicate: PolicyReject,
		Workers:     4, // Default worker count
	}
}

func (ig *Ingester) logger() *logging.Logger {
	if ig.Logger == nil {
		return logging.Nop()
	}
	return ig.Logger
}

// acquire claims a document URN for the duration of one ingest attempt.
func (ig *Ingester) acquire(urn string) error {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	if ig.inFlight == nil {
		ig.inFlight = make(map[string]struct{})
	}
	if _, busy := ig.inFlight[urn]; busy {
		return &corpus.DuplicateURNError{URN: urn, Scope: "in-flight"}
	}
	ig.inFlight[urn] = struct{}{}
	return nil
}

func (ig *Ingester) release(urn string) {
	ig.mu.Lock()
	delete(ig.inFlight, urn)
	ig.mu.Unlock()
}

// commitFunc writes one built document; the direct path uses the store,
// concurrent runs route through the Committer.
type commitFunc func(ctx context.Context, doc *corpus.Document, policy db.DuplicatePolicy) error

// ingestOne applies the duplicate policy and commits a built document.
func (ig *Ingester) ingestOne(ctx context.Context, doc *corpus.Document, commit commitFunc) (outcome, error) {
	if err := ig.acquire(doc.URN); err != nil {
		return 0, err
	}
	defer ig.release(doc.URN)

	existed := false
	if ig.OnDuplicate != PolicyReject {
		var err error
		existed, err = db.DocumentExists(ig.DB, doc.URN)
		if err != nil {
			return 0, fmt.Errorf("check document %s: %w", doc.URN, err)
		}
	}
	if ig.OnDuplicate == PolicySkip && existed {
		return outcomeSkipped, nil
	}

	if err := commit(ctx, doc, ig.OnDuplicate.dbPolicy()); err != nil {
		return 0, err
	}
	if existed {
		return outcomeReplaced, nil
	}
	return outcomeLoaded, nil
}

// IngestDocument loads one already-built document, honoring the
// duplicate policy. Skipped documents return a nil error.
func (ig *Ingester) IngestDocument(ctx context.Context, doc *corpus.Document) error {
	res, err := ig.ingestOne(ctx, doc, func(ctx context.Context, doc *corpus.Document, policy db.DuplicatePolicy) error {
		return db.CommitDocument(ctx, ig.DB, doc, policy)
	})
	if err != nil {
		return err
	}
	ig.logger().Debug("document ingested", "urn", doc.URN, "outcome", outcomeName(res))
	return nil
}

// ingestFile turns one document file into a committed document.
func (ig *Ingester) ingestFile(ctx context.Context, path string, commit commitFunc) (outcome, error) {
	f, err := docfile.Load(path)
	if err != nil {
		return 0, err
	}
	events, err := f.Events()
	if err != nil {
		return 0, err
	}
	doc, err := corpus.Build(f.URN, f.Language, events)
	if err != nil {
		return 0, err
	}
	return ig.ingestOne(ctx, doc, commit)
}

// fileResult reports one finished file to the summarizing consumer.
type fileResult struct {
	path    string
	outcome outcome
	err     error
}

// IngestFiles loads the given document files concurrently. Per-file
// failures land in the summary, not the returned error; the error
// reports run-level failures such as context cancellation. The summary
// covers the files that completed either way.
func (ig *Ingester) IngestFiles(ctx context.Context, paths []string) (*Summary, error) {
	total := len(paths)
	log := ig.logger().With("run_id", uuid.NewString())
	log.Info("ingestion run starting", "files", total, "workers", ig.Workers, "on_duplicate", ig.OnDuplicate.String())

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	committer := NewCommitter(ig.DB, 2)
	results := make(chan fileResult, ig.Workers*2)
	resultsClosed := false

	defer func() {
		wp.Close()
		if !resultsClosed {
			close(results)
		}
		// Best-effort close; ignore already-closed errors
		_ = committer.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	// Consumer: fold results into the summary as workers finish.
	summaryCh := make(chan Summary, 1)
	go func() {
		var s Summary
		done := 0
		for res := range results {
			done++
			switch {
			case res.err != nil:
				s.Failed++
				s.Failures = append(s.Failures, FileError{Path: res.path, Err: res.err})
				log.Warn("document failed", "path", res.path, "error", res.err)
			case res.outcome == outcomeReplaced:
				s.Replaced++
			case res.outcome == outcomeSkipped:
				s.Skipped++
			default:
				s.Loaded++
			}
			if ig.OnProgress != nil {
				ig.OnProgress(done, total)
			}
		}
		summaryCh <- s
	}()

	commit := func(ctx context.Context, doc *corpus.Document, policy db.DuplicatePolicy) error {
		return committer.Commit(ctx, doc, policy)
	}

	var runErr error
Loop:
	for _, path := range paths {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break Loop
		default:
		}

		p := path
		job := func(ctx context.Context) error {
			res := fileResult{path: p}
			res.outcome, res.err = ig.ingestFile(ctx, p, commit)
			select {
			case results <- res:
			case <-ctx.Done():
			}
			return res.err
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			runErr = err
			break Loop
		}
	}

	// No more submissions: drain workers, then the consumer.
	wp.Close()
	close(results)
	resultsClosed = true
	s := <-summaryCh

	if err := committer.Close(); err != nil && err != ErrCommitterClosed && runErr == nil {
		runErr = err
	}

	log.Info("ingestion run finished",
		"loaded", s.Loaded, "replaced", s.Replaced, "skipped", s.Skipped, "errors", s.Failed)
	return &s, runErr
}

// IngestDir discovers the document files under dir and loads them.
func (ig *Ingester) IngestDir(ctx context.Context, dir string) (*Summary, error) {
	paths, err := docfile.Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		ig.logger().Warn("no document files found", "dir", dir)
		return &Summary{}, nil
	}
	return ig.IngestFiles(ctx, paths)
}

func outcomeName(o outcome) string {
	switch o {
	case outcomeReplaced:
		return "replaced"
	case outcomeSkipped:
		return "skipped"
	default:
		return "loaded"
	}
}
