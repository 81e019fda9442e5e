package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/pletcher/kodon/pkg/corpus"
	"github.com/pletcher/kodon/pkg/db"
	"github.com/pletcher/kodon/pkg/docfile"
)

func setupBenchmarkDB(b *testing.B) *sql.DB {
	// In-memory store isolates ingestion overhead from disk I/O, though
	// SQLite in-memory still has some locking.
	conn, err := db.OpenInMemory()
	if err != nil {
		b.Fatalf("failed to open db: %v", err)
	}
	_, _ = conn.Exec("PRAGMA synchronous = OFF")
	return conn
}

// generateBenchmarkFiles writes n small document files into dir.
func generateBenchmarkFiles(b *testing.B, dir string, n int) []string {
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		urn := fmt.Sprintf("urn:cts:greekLit:tlg0001.tlg%03d.bench-grc1", i)
		paths = append(paths, writeTestDocfile(b, dir, fmt.Sprintf("%03d.json", i), urn))
	}
	return paths
}

func BenchmarkIngestFiles(b *testing.B) {
	dir := b.TempDir()
	paths := generateBenchmarkFiles(b, dir, 100)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn := setupBenchmarkDB(b)
		ig := NewIngester(conn)
		ig.Workers = 4
		b.StartTimer()

		sum, err := ig.IngestFiles(context.Background(), paths)
		b.StopTimer()
		if err != nil {
			conn.Close()
			b.Fatalf("IngestFiles failed: %v", err)
		}
		if sum.Failed != 0 {
			conn.Close()
			b.Fatalf("ingestion failures: %+v", sum.Failures)
		}
		conn.Close()
	}
}

func BenchmarkIngestConcurrencyScaling(b *testing.B) {
	// Compare worker counts. On small corpora the pool overhead can
	// outweigh the parallel decode, but this guards against large
	// regressions.
	counts := []int{1, 2, 4, 8}
	dir := b.TempDir()
	paths := generateBenchmarkFiles(b, dir, 100)

	for _, workers := range counts {
		b.Run(fmt.Sprintf("Workers_%d", workers), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				conn := setupBenchmarkDB(b)
				ig := NewIngester(conn)
				ig.Workers = workers
				b.StartTimer()

				_, err := ig.IngestFiles(context.Background(), paths)
				b.StopTimer()
				if err != nil {
					conn.Close()
					b.Fatalf("IngestFiles failed: %v", err)
				}
				conn.Close()
			}
		})
	}
}

func BenchmarkCommitDocument(b *testing.B) {
	conn := setupBenchmarkDB(b)
	defer conn.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		urn := fmt.Sprintf("urn:cts:greekLit:tlg9999.tlg%06d.bench-grc1", i)
		doc := buildDoc(b, urn)
		b.StartTimer()

		if err := db.CommitDocument(context.Background(), conn, doc, db.PolicyReject); err != nil {
			b.Fatalf("CommitDocument failed: %v", err)
		}
	}
}

// BenchmarkBuildFromFile measures the CPU-bound half of a load: decode
// the file, derive its events, build the document.
func BenchmarkBuildFromFile(b *testing.B) {
	dir := b.TempDir()
	path := generateBenchmarkFiles(b, dir, 1)[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f, err := docfile.Load(path)
		if err != nil {
			b.Fatalf("Load failed: %v", err)
		}
		events, err := f.Events()
		if err != nil {
			b.Fatalf("Events failed: %v", err)
		}
		if _, err := corpus.Build(f.URN, f.Language, events); err != nil {
			b.Fatalf("Build failed: %v", err)
		}
	}
}
