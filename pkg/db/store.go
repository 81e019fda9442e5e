package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pletcher/kodon/pkg/corpus"
)

// DBExecutor is an interface that allows query helpers to accept either
// *sql.DB or *sql.Tx.
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a
// unique/constraint violation. Both SQLite drivers surface these only
// through their message text.
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// nullableString returns nil for "" so empty values store as NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullableInt64 returns nil for 0 (meaning no row reference) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// DuplicatePolicy decides what CommitDocument does when the document
// URN is already committed.
type DuplicatePolicy int

const (
	// PolicyReject fails the commit with ErrDuplicateURN and leaves the
	// store untouched.
	PolicyReject DuplicatePolicy = iota
	// PolicyReplace deletes the prior document's rows and inserts the
	// new ones inside the same transaction, so readers never observe a
	// partial document.
	PolicyReplace
)

func (p DuplicatePolicy) String() string {
	switch p {
	case PolicyReplace:
		return "replace"
	default:
		return "reject"
	}
}

// CommitDocument validates doc and writes it in a single transaction:
// document row, then textparts in document order, then elements parents
// first, then tokens. Arena handles resolve to row IDs as the inserts
// proceed. On any failure the transaction rolls back and the store is
// unchanged.
func CommitDocument(ctx context.Context, conn *sql.DB, doc *corpus.Document, policy DuplicatePolicy) error {
	if err := corpus.Validate(doc); err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit for %s: %w", doc.URN, err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	var one int
	err = tx.QueryRow(`SELECT 1 FROM documents WHERE urn = ?`, doc.URN).Scan(&one)
	switch {
	case err == nil:
		if policy != PolicyReplace {
			return &corpus.DuplicateURNError{URN: doc.URN, Scope: "store"}
		}
		if err := deleteDocumentTx(tx, doc.URN); err != nil {
			return err
		}
	case err != sql.ErrNoRows:
		return fmt.Errorf("check document %s: %w", doc.URN, err)
	}

	if err := checkTextpartCollisions(tx, doc); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO documents (urn, lang) VALUES (?, ?)`, doc.URN, doc.Lang); err != nil {
		if isUniqueConstraintErr(err) {
			return &corpus.DuplicateURNError{URN: doc.URN, Scope: "store"}
		}
		return fmt.Errorf("insert document %s: %w", doc.URN, err)
	}

	tpIDs, err := insertTextparts(tx, doc)
	if err != nil {
		return err
	}
	elIDs, err := insertElements(tx, doc, tpIDs)
	if err != nil {
		return err
	}
	if err := insertTokens(tx, doc, tpIDs, elIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document %s: %w", doc.URN, err)
	}
	return nil
}

// deleteDocumentTx removes a document and its rows, children before
// parents to satisfy the foreign keys.
func deleteDocumentTx(tx *sql.Tx, urn string) error {
	for _, q := range []string{
		`DELETE FROM tokens WHERE document_urn = ?`,
		`DELETE FROM elements WHERE document_urn = ?`,
		`DELETE FROM textparts WHERE document_urn = ?`,
		`DELETE FROM documents WHERE urn = ?`,
	} {
		if _, err := tx.Exec(q, urn); err != nil {
			return fmt.Errorf("delete document %s: %w", urn, err)
		}
	}
	return nil
}

// checkTextpartCollisions looks for batch textpart URNs already
// committed under other documents, in chunks to keep the IN lists
// bounded.
func checkTextpartCollisions(tx *sql.Tx, doc *corpus.Document) error {
	const chunk = 400
	for start := 0; start < len(doc.Textparts); start += chunk {
		end := start + chunk
		if end > len(doc.Textparts) {
			end = len(doc.Textparts)
		}
		batch := doc.Textparts[start:end]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]interface{}, len(batch))
		for i := range batch {
			args[i] = batch[i].URN
		}
		var hit string
		err := tx.QueryRow(`SELECT urn FROM textparts WHERE urn IN (`+placeholders+`) LIMIT 1`, args...).Scan(&hit)
		if err == nil {
			return &corpus.DuplicateURNError{URN: hit, Scope: "store"}
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check textpart urns: %w", err)
		}
	}
	return nil
}

func insertTextparts(tx *sql.Tx, doc *corpus.Document) (map[int]int64, error) {
	ids := make(map[int]int64, len(doc.Textparts))
	if len(doc.Textparts) == 0 {
		return ids, nil
	}
	stmt, err := tx.Prepare(`INSERT INTO textparts (document_urn, urn, type, subtype, n, idx, location)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare textpart insert: %w", err)
	}
	defer stmt.Close()

	// Pre-order walk so row IDs ascend in document order; readers rely
	// on ORDER BY id for textpart ordering.
	for _, h := range preorderWalk(len(doc.Textparts),
		func(i int) int { return doc.Textparts[i].Parent },
		func(i int) []int { return doc.Textparts[i].Children },
	) {
		tp := &doc.Textparts[h]
		res, err := stmt.Exec(doc.URN, tp.URN, nullableString(tp.Type), nullableString(tp.Subtype),
			nullableString(tp.N), tp.Idx, tp.Location)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return nil, &corpus.DuplicateURNError{URN: tp.URN, Scope: "store"}
			}
			return nil, fmt.Errorf("insert textpart %s: %w", tp.URN, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("textpart %s id: %w", tp.URN, err)
		}
		ids[h] = id
	}
	if len(ids) != len(doc.Textparts) {
		return nil, &corpus.InvariantError{Msg: "textpart forest walk missed nodes"}
	}
	return ids, nil
}

func insertElements(tx *sql.Tx, doc *corpus.Document, tpIDs map[int]int64) (map[int]int64, error) {
	ids := make(map[int]int64, len(doc.Elements))
	if len(doc.Elements) == 0 {
		return ids, nil
	}
	stmt, err := tx.Prepare(`INSERT INTO elements (document_urn, textpart_id, urn, tagname, idx, textpart_urn, textpart_index, parent_id, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare element insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range preorderWalk(len(doc.Elements),
		func(i int) int { return doc.Elements[i].Parent },
		func(i int) []int { return doc.Elements[i].Children },
	) {
		el := &doc.Elements[h]
		attrs, err := encodeAttrs(el.Attrs)
		if err != nil {
			return nil, fmt.Errorf("element %s attributes: %w", el.URN, err)
		}

		var textpartIdx interface{}
		if el.Textpart != corpus.NoHandle {
			textpartIdx = el.TextpartIdx
		}
		res, err := stmt.Exec(doc.URN, nullableInt64(tpIDs[el.Textpart]), el.URN, el.Tag, el.Idx,
			nullableString(el.TextpartURN), textpartIdx, nullableInt64(ids[el.Parent]), attrs)
		if err != nil {
			return nil, fmt.Errorf("insert element %s: %w", el.URN, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("element %s id: %w", el.URN, err)
		}
		ids[h] = id
	}
	if len(ids) != len(doc.Elements) {
		return nil, &corpus.InvariantError{Msg: "element forest walk missed nodes"}
	}
	return ids, nil
}

func insertTokens(tx *sql.Tx, doc *corpus.Document, tpIDs, elIDs map[int]int64) error {
	if len(doc.Tokens) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO tokens (document_urn, textpart_id, element_id, urn, text, whitespace, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare token insert: %w", err)
	}
	defer stmt.Close()

	for i := range doc.Tokens {
		tok := &doc.Tokens[i]
		_, err := stmt.Exec(doc.URN, tpIDs[tok.Textpart], nullableInt64(elIDs[tok.Element]),
			tok.URN, tok.Text, tok.Whitespace, tok.Position)
		if err != nil {
			return fmt.Errorf("insert token %s: %w", tok.URN, err)
		}
	}
	return nil
}

// preorderWalk yields every node of a validated forest, parents before
// children, roots and siblings in handle/child order.
func preorderWalk(n int, parent func(int) int, children func(int) []int) []int {
	order := make([]int, 0, n)
	var stack []int
	for i := n - 1; i >= 0; i-- {
		if parent(i) == corpus.NoHandle {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, h)
		kids := children(h)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return order
}

// encodeAttrs renders element attributes as a JSON object, "{}" when
// absent.
func encodeAttrs(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
