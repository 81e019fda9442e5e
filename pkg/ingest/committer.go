package ingest

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pletcher/kodon/pkg/corpus"
	"github.com/pletcher/kodon/pkg/db"
)

// commitRequest carries one built document to the writer goroutine.
// The result channel is buffered so the writer never blocks on a
// caller that gave up.
type commitRequest struct {
	ctx    context.Context
	doc    *corpus.Document
	policy db.DuplicatePolicy
	result chan error
}

// Committer serializes document commits onto a single writer goroutine,
// one transaction per document. Workers hand over built documents and
// block for the outcome, so commit errors surface at the submitting
// worker while the database only ever sees one writer.
type Committer struct {
	conn     *sql.DB
	requests chan commitRequest
	done     chan struct{}
	wg       sync.WaitGroup
	subWg    sync.WaitGroup
	closeMu  sync.Mutex
	closed   bool
}

// NewCommitter starts the writer goroutine. queue bounds how many
// built documents may wait for the writer before submitters block.
func NewCommitter(conn *sql.DB, queue int) *Committer {
	if queue <= 0 {
		queue = 2
	}
	c := &Committer{
		conn:     conn,
		requests: make(chan commitRequest, queue),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Committer) run() {
	defer c.wg.Done()
	for req := range c.requests {
		req.result <- db.CommitDocument(req.ctx, c.conn, req.doc, req.policy)
	}
}

// Commit hands doc to the writer and waits for the transaction's
// outcome. Returns ErrCommitterClosed when the committer shut down
// first, or ctx.Err when the caller's context ends while waiting.
func (c *Committer) Commit(ctx context.Context, doc *corpus.Document, policy db.DuplicatePolicy) error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return ErrCommitterClosed
	}
	c.subWg.Add(1)
	c.closeMu.Unlock()
	defer c.subWg.Done()

	req := commitRequest{ctx: ctx, doc: doc, policy: policy, result: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return ErrCommitterClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		// The write may still land; the transaction itself sees the
		// canceled context and rolls back.
		return ctx.Err()
	}
}

// Close stops accepting commits, drains queued requests, and waits for
// the writer goroutine to exit.
func (c *Committer) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return ErrCommitterClosed
	}
	c.closed = true
	close(c.done)
	c.closeMu.Unlock()

	c.subWg.Wait()
	close(c.requests)
	c.wg.Wait()
	return nil
}

// ErrCommitterClosed is returned if a Commit is attempted after Close.
var ErrCommitterClosed = &CommitterError{"document committer closed"}

// CommitterError provides a simple typed error for committer operations.
type CommitterError struct{ msg string }

func (e *CommitterError) Error() string { return e.msg }
