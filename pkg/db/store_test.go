package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/pletcher/kodon/pkg/corpus"
)

const storeDocURN = "urn:cts:greekLit:tlg0007.tlg001.store-grc1"

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// sampleEvents is two chapters, the first with a heading and a nested
// section whose paragraph wraps a quote, plus one document-scoped note.
func sampleEvents() []corpus.Event {
	return []corpus.Event{
		corpus.TextpartEnter("textpart", "chapter", "1"),
		corpus.ElementEnter("head", nil),
		corpus.TokenEvent("Heading", false),
		corpus.ElementExit(),
		corpus.TextpartEnter("textpart", "section", "1"),
		corpus.ElementEnter("p", map[string]string{"rend": "indent"}),
		corpus.TokenEvent("Test", true),
		corpus.ElementEnter("quote", nil),
		corpus.TokenEvent("content", false),
		corpus.ElementExit(),
		corpus.ElementExit(),
		corpus.TextpartExit(),
		corpus.TextpartExit(),
		corpus.TextpartEnter("textpart", "chapter", "2"),
		corpus.ElementEnter("p", nil),
		corpus.TokenEvent("More", true),
		corpus.TokenEvent("words", false),
		corpus.ElementExit(),
		corpus.TextpartExit(),
		corpus.ElementEnter("note", map[string]string{"place": "end"}),
		corpus.ElementExit(),
	}
}

func buildStoreDoc(t *testing.T, urn string) *corpus.Document {
	t.Helper()
	doc, err := corpus.Build(urn, "grc", sampleEvents())
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	return doc
}

func TestCommitDocumentPersistsRows(t *testing.T) {
	conn := setupTestDB(t)
	if err := CommitDocument(context.Background(), conn, buildStoreDoc(t, storeDocURN), PolicyReject); err != nil {
		t.Fatalf("CommitDocument failed: %v", err)
	}

	doc, err := GetDocument(conn, storeDocURN)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if doc.Lang != "grc" {
		t.Errorf("lang = %q, want grc", doc.Lang)
	}

	counts, err := GetDocumentCounts(conn, storeDocURN)
	if err != nil {
		t.Fatalf("GetDocumentCounts failed: %v", err)
	}
	if counts.Textparts != 3 || counts.Elements != 5 || counts.Tokens != 5 {
		t.Fatalf("counts = %+v, want 3 textparts, 5 elements, 5 tokens", counts)
	}

	tp, err := GetTextpartByURN(conn, storeDocURN+":1.1")
	if err != nil {
		t.Fatalf("GetTextpartByURN failed: %v", err)
	}
	if tp.Location != "1.1" || tp.Subtype != "section" || tp.Idx != 0 {
		t.Errorf("textpart = %+v", tp)
	}

	el, err := GetElementByURN(conn, storeDocURN+":1.1@<quote>[1]")
	if err != nil {
		t.Fatalf("GetElementByURN failed: %v", err)
	}
	if el.Tagname != "quote" || el.TextpartURN != storeDocURN+":1.1" || el.ParentID == 0 {
		t.Errorf("element = %+v", el)
	}

	tok, err := GetTokenByURN(conn, storeDocURN+":1.1@content[1]")
	if err != nil {
		t.Fatalf("GetTokenByURN failed: %v", err)
	}
	if tok.Text != "content" || tok.Position != 1 || tok.ElementID != el.ID {
		t.Errorf("token = %+v", tok)
	}
}

func TestCommitDocumentStoresDocumentScopedElement(t *testing.T) {
	conn := setupTestDB(t)
	if err := CommitDocument(context.Background(), conn, buildStoreDoc(t, storeDocURN), PolicyReject); err != nil {
		t.Fatalf("CommitDocument failed: %v", err)
	}

	els, err := DocumentScopedElements(conn, storeDocURN)
	if err != nil {
		t.Fatalf("DocumentScopedElements failed: %v", err)
	}
	if len(els) != 1 {
		t.Fatalf("expected 1 document-scoped element, got %d", len(els))
	}
	if els[0].Tagname != "note" || els[0].TextpartID != 0 {
		t.Errorf("element = %+v", els[0])
	}
	if els[0].Attributes != `{"place":"end"}` {
		t.Errorf("attributes = %q", els[0].Attributes)
	}
}

func TestCommitDocumentDuplicateReject(t *testing.T) {
	conn := setupTestDB(t)
	if err := CommitDocument(context.Background(), conn, buildStoreDoc(t, storeDocURN), PolicyReject); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	err := CommitDocument(context.Background(), conn, buildStoreDoc(t, storeDocURN), PolicyReject)
	if !errors.Is(err, corpus.ErrDuplicateURN) {
		t.Fatalf("expected duplicate urn error, got %v", err)
	}
	var dup *corpus.DuplicateURNError
	if !errors.As(err, &dup) || dup.Scope != "store" {
		t.Fatalf("expected store scope, got %v", err)
	}

	// The failed commit must not have disturbed the stored rows.
	counts, err := GetDocumentCounts(conn, storeDocURN)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Tokens != 5 {
		t.Errorf("token count = %d after rejected commit, want 5", counts.Tokens)
	}
}

func TestCommitDocumentReplace(t *testing.T) {
	conn := setupTestDB(t)
	if err := CommitDocument(context.Background(), conn, buildStoreDoc(t, storeDocURN), PolicyReject); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	events := append(sampleEvents(),
		corpus.TextpartEnter("textpart", "chapter", "3"),
		corpus.TokenEvent("added", false),
		corpus.TextpartExit(),
	)
	replacement, err := corpus.Build(storeDocURN, "grc", events)
	if err != nil {
		t.Fatalf("build replacement: %v", err)
	}
	if err := CommitDocument(context.Background(), conn, replacement, PolicyReplace); err != nil {
		t.Fatalf("replace commit failed: %v", err)
	}

	docs, err := ListDocuments(conn)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document after replace, got %d", len(docs))
	}
	counts, err := GetDocumentCounts(conn, storeDocURN)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Textparts != 4 || counts.Tokens != 6 {
		t.Fatalf("counts = %+v after replace, want 4 textparts, 6 tokens", counts)
	}
	tok, err := GetTokenByURN(conn, storeDocURN+":3@added[1]")
	if err != nil {
		t.Fatal(err)
	}
	if tok == nil {
		t.Error("replacement token missing")
	}
}

func TestCommitDocumentValidatesFirst(t *testing.T) {
	conn := setupTestDB(t)
	doc := buildStoreDoc(t, storeDocURN)
	doc.Tokens[0].Position = 7 // outside the dense range

	err := CommitDocument(context.Background(), conn, doc, PolicyReject)
	if !errors.Is(err, corpus.ErrOrderingViolation) {
		t.Fatalf("expected ordering violation, got %v", err)
	}
	exists, err := DocumentExists(conn, storeDocURN)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("invalid document was committed")
	}
}

func TestCommitDocumentTextpartCollisionRollsBack(t *testing.T) {
	conn := setupTestDB(t)
	if err := CommitDocument(context.Background(), conn, buildStoreDoc(t, storeDocURN), PolicyReject); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	// A second document claiming a textpart URN the store already holds
	// must fail and leave no trace of itself. The element cache moves
	// with the textpart so the batch itself stays valid.
	otherURN := "urn:cts:greekLit:tlg0007.tlg002.store-grc1"
	intruder := buildStoreDoc(t, otherURN)
	intruder.Textparts[0].URN = storeDocURN + ":1"
	for i := range intruder.Elements {
		if intruder.Elements[i].Textpart == 0 {
			intruder.Elements[i].TextpartURN = storeDocURN + ":1"
		}
	}

	err := CommitDocument(context.Background(), conn, intruder, PolicyReject)
	if !errors.Is(err, corpus.ErrDuplicateURN) {
		t.Fatalf("expected duplicate urn error, got %v", err)
	}
	exists, err := DocumentExists(conn, otherURN)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("collided document row survived the rollback")
	}
}

func TestCommitDocumentNilDocument(t *testing.T) {
	conn := setupTestDB(t)
	err := CommitDocument(context.Background(), conn, nil, PolicyReject)
	if !errors.Is(err, corpus.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestCommitDocumentContextCanceled(t *testing.T) {
	conn := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := CommitDocument(ctx, conn, buildStoreDoc(t, storeDocURN), PolicyReject)
	if err == nil {
		t.Fatal("expected error with canceled context")
	}
	exists, err := DocumentExists(conn, storeDocURN)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("document committed despite canceled context")
	}
}

func TestDuplicatePolicyString(t *testing.T) {
	if PolicyReject.String() != "reject" || PolicyReplace.String() != "replace" {
		t.Fatalf("policy strings = %q, %q", PolicyReject.String(), PolicyReplace.String())
	}
}
