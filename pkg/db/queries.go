package db

import (
	"database/sql"
	"fmt"
)

const (
	textpartColumns = `id, document_urn, urn, type, subtype, n, idx, location`
	elementColumns  = `id, document_urn, textpart_id, urn, tagname, idx, textpart_urn, textpart_index, parent_id, attributes`
	tokenColumns    = `id, document_urn, textpart_id, element_id, urn, text, whitespace, position`
	// tokenColumns qualified for queries that join tokens with textparts.
	tokenColumnsT = `t.id, t.document_urn, t.textpart_id, t.element_id, t.urn, t.text, t.whitespace, t.position`
)

// DocumentExists reports whether a document URN is committed.
func DocumentExists(db DBExecutor, urn string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM documents WHERE urn = ?`, urn).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check document %s: %w", urn, err)
	}
	return true, nil
}

// GetDocument returns the document row, or nil when the URN is not
// committed.
func GetDocument(db DBExecutor, urn string) (*Document, error) {
	var d Document
	err := db.QueryRow(`SELECT urn, lang, created_at FROM documents WHERE urn = ?`, urn).
		Scan(&d.URN, &d.Lang, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", urn, err)
	}
	return &d, nil
}

// ListDocuments returns every committed document ordered by URN.
func ListDocuments(db DBExecutor) ([]Document, error) {
	rows, err := db.Query(`SELECT urn, lang, created_at FROM documents ORDER BY urn`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.URN, &d.Lang, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetTextpartByURN returns the textpart row, or nil when absent.
func GetTextpartByURN(db DBExecutor, urn string) (*Textpart, error) {
	row := db.QueryRow(`SELECT `+textpartColumns+` FROM textparts WHERE urn = ?`, urn)
	tp, err := scanTextpart(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get textpart %s: %w", urn, err)
	}
	return tp, nil
}

// GetTextpartByID returns the textpart row, or nil when absent.
func GetTextpartByID(db DBExecutor, id int64) (*Textpart, error) {
	row := db.QueryRow(`SELECT `+textpartColumns+` FROM textparts WHERE id = ?`, id)
	tp, err := scanTextpart(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get textpart %d: %w", id, err)
	}
	return tp, nil
}

// GetElementByURN returns the element row, or nil when absent.
func GetElementByURN(db DBExecutor, urn string) (*Element, error) {
	rows, err := db.Query(`SELECT `+elementColumns+` FROM elements WHERE urn = ? ORDER BY id LIMIT 1`, urn)
	if err != nil {
		return nil, fmt.Errorf("get element %s: %w", urn, err)
	}
	defer rows.Close()
	els, err := elementsFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("get element %s: %w", urn, err)
	}
	if len(els) == 0 {
		return nil, nil
	}
	return &els[0], nil
}

// GetTokenByURN returns the token row, or nil when absent.
func GetTokenByURN(db DBExecutor, urn string) (*Token, error) {
	rows, err := db.Query(`SELECT `+tokenColumns+` FROM tokens WHERE urn = ? ORDER BY id LIMIT 1`, urn)
	if err != nil {
		return nil, fmt.Errorf("get token %s: %w", urn, err)
	}
	defer rows.Close()
	toks, err := tokensFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("get token %s: %w", urn, err)
	}
	if len(toks) == 0 {
		return nil, nil
	}
	return &toks[0], nil
}

// TextpartsByDocument returns a document's textparts in document
// order.
func TextpartsByDocument(db DBExecutor, docURN string) ([]Textpart, error) {
	rows, err := db.Query(`SELECT `+textpartColumns+` FROM textparts WHERE document_urn = ? ORDER BY id`, docURN)
	if err != nil {
		return nil, fmt.Errorf("textparts of %s: %w", docURN, err)
	}
	defer rows.Close()
	return textpartsFromRows(rows)
}

// RootTextparts returns a document's top-level textparts in document
// order. Roots are the textparts whose location has a single step.
func RootTextparts(db DBExecutor, docURN string) ([]Textpart, error) {
	rows, err := db.Query(`SELECT `+textpartColumns+` FROM textparts
		WHERE document_urn = ? AND location NOT LIKE '%.%' ORDER BY id`, docURN)
	if err != nil {
		return nil, fmt.Errorf("root textparts of %s: %w", docURN, err)
	}
	defer rows.Close()
	return textpartsFromRows(rows)
}

// ChildTextparts returns the direct children of the textpart at
// location: one citation step deeper, same document.
func ChildTextparts(db DBExecutor, docURN, location string) ([]Textpart, error) {
	rows, err := db.Query(`SELECT `+textpartColumns+` FROM textparts
		WHERE document_urn = ? AND location LIKE ? || '.%' AND location NOT LIKE ? || '.%.%'
		ORDER BY id`, docURN, location, location)
	if err != nil {
		return nil, fmt.Errorf("children of %s %s: %w", docURN, location, err)
	}
	defer rows.Close()
	return textpartsFromRows(rows)
}

// DescendantTextparts returns the textpart at location and everything
// beneath it, in document order.
func DescendantTextparts(db DBExecutor, docURN, location string) ([]Textpart, error) {
	rows, err := db.Query(`SELECT `+textpartColumns+` FROM textparts
		WHERE document_urn = ? AND (location = ? OR location LIKE ? || '.%')
		ORDER BY id`, docURN, location, location)
	if err != nil {
		return nil, fmt.Errorf("descendants of %s %s: %w", docURN, location, err)
	}
	defer rows.Close()
	return textpartsFromRows(rows)
}

// TopElementsByTextpart returns a textpart's top-level elements in
// sibling order.
func TopElementsByTextpart(db DBExecutor, textpartID int64) ([]Element, error) {
	rows, err := db.Query(`SELECT `+elementColumns+` FROM elements
		WHERE textpart_id = ? AND parent_id IS NULL ORDER BY idx`, textpartID)
	if err != nil {
		return nil, fmt.Errorf("top elements of textpart %d: %w", textpartID, err)
	}
	defer rows.Close()
	return elementsFromRows(rows)
}

// DocumentScopedElements returns elements that sit outside any
// textpart, in sibling order.
func DocumentScopedElements(db DBExecutor, docURN string) ([]Element, error) {
	rows, err := db.Query(`SELECT `+elementColumns+` FROM elements
		WHERE document_urn = ? AND textpart_id IS NULL AND parent_id IS NULL ORDER BY idx`, docURN)
	if err != nil {
		return nil, fmt.Errorf("document elements of %s: %w", docURN, err)
	}
	defer rows.Close()
	return elementsFromRows(rows)
}

// ChildElements returns an element's direct children in sibling order.
func ChildElements(db DBExecutor, parentID int64) ([]Element, error) {
	rows, err := db.Query(`SELECT `+elementColumns+` FROM elements
		WHERE parent_id = ? ORDER BY idx`, parentID)
	if err != nil {
		return nil, fmt.Errorf("children of element %d: %w", parentID, err)
	}
	defer rows.Close()
	return elementsFromRows(rows)
}

// TokensByTextpart returns a textpart's tokens in position order.
func TokensByTextpart(db DBExecutor, textpartID int64) ([]Token, error) {
	rows, err := db.Query(`SELECT `+tokenColumns+` FROM tokens
		WHERE textpart_id = ? ORDER BY position`, textpartID)
	if err != nil {
		return nil, fmt.Errorf("tokens of textpart %d: %w", textpartID, err)
	}
	defer rows.Close()
	return tokensFromRows(rows)
}

// TokensByElement returns the tokens directly attached to an element,
// in position order.
func TokensByElement(db DBExecutor, elementID int64) ([]Token, error) {
	rows, err := db.Query(`SELECT `+tokenColumns+` FROM tokens
		WHERE element_id = ? ORDER BY position`, elementID)
	if err != nil {
		return nil, fmt.Errorf("tokens of element %d: %w", elementID, err)
	}
	defer rows.Close()
	return tokensFromRows(rows)
}

// TokensByElementSubtree returns the tokens of an element and all its
// descendant elements, in position order.
func TokensByElementSubtree(db DBExecutor, elementID int64) ([]Token, error) {
	rows, err := db.Query(`WITH RECURSIVE sub(id) AS (
			SELECT id FROM elements WHERE id = ?
			UNION ALL
			SELECT e.id FROM elements e JOIN sub s ON e.parent_id = s.id
		)
		SELECT `+tokenColumns+` FROM tokens
		WHERE element_id IN (SELECT id FROM sub) ORDER BY position`, elementID)
	if err != nil {
		return nil, fmt.Errorf("subtree tokens of element %d: %w", elementID, err)
	}
	defer rows.Close()
	return tokensFromRows(rows)
}

// TokenSpanByLocation returns the first and last token under a
// citation node: the textpart at location plus all its descendants.
// Both are nil when the subtree holds no tokens.
func TokenSpanByLocation(db DBExecutor, docURN, location string) (first, last *Token, err error) {
	const base = `SELECT ` + tokenColumnsT + ` FROM tokens t
		JOIN textparts tp ON tp.id = t.textpart_id
		WHERE tp.document_urn = ? AND (tp.location = ? OR tp.location LIKE ? || '.%%')
		ORDER BY t.textpart_id %s, t.position %s LIMIT 1`
	first, err = queryOneToken(db, fmt.Sprintf(base, "ASC", "ASC"), docURN, location, location)
	if err != nil {
		return nil, nil, fmt.Errorf("token span of %s %s: %w", docURN, location, err)
	}
	if first == nil {
		return nil, nil, nil
	}
	last, err = queryOneToken(db, fmt.Sprintf(base, "DESC", "DESC"), docURN, location, location)
	if err != nil {
		return nil, nil, fmt.Errorf("token span of %s %s: %w", docURN, location, err)
	}
	return first, last, nil
}

// TokenSpanByElement returns the first and last token inside an
// element's subtree. Both are nil when the subtree holds no tokens.
func TokenSpanByElement(db DBExecutor, elementID int64) (first, last *Token, err error) {
	const base = `WITH RECURSIVE sub(id) AS (
			SELECT id FROM elements WHERE id = ?
			UNION ALL
			SELECT e.id FROM elements e JOIN sub s ON e.parent_id = s.id
		)
		SELECT ` + tokenColumns + ` FROM tokens
		WHERE element_id IN (SELECT id FROM sub)
		ORDER BY position %s LIMIT 1`
	first, err = queryOneToken(db, fmt.Sprintf(base, "ASC"), elementID)
	if err != nil {
		return nil, nil, fmt.Errorf("token span of element %d: %w", elementID, err)
	}
	if first == nil {
		return nil, nil, nil
	}
	last, err = queryOneToken(db, fmt.Sprintf(base, "DESC"), elementID)
	if err != nil {
		return nil, nil, fmt.Errorf("token span of element %d: %w", elementID, err)
	}
	return first, last, nil
}

func queryOneToken(db DBExecutor, query string, args ...interface{}) (*Token, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	toks, err := tokensFromRows(rows)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, nil
	}
	return &toks[0], nil
}

// TokensBetween returns a document's tokens from (startTextpart,
// startPos) through (endTextpart, endPos) inclusive, in document
// order. Textpart row IDs ascend in document order by construction.
func TokensBetween(db DBExecutor, docURN string, startTextpart int64, startPos int, endTextpart int64, endPos int) ([]Token, error) {
	rows, err := db.Query(`SELECT `+tokenColumns+` FROM tokens
		WHERE document_urn = ?
		  AND (textpart_id > ? OR (textpart_id = ? AND position >= ?))
		  AND (textpart_id < ? OR (textpart_id = ? AND position <= ?))
		ORDER BY textpart_id, position`,
		docURN, startTextpart, startTextpart, startPos, endTextpart, endTextpart, endPos)
	if err != nil {
		return nil, fmt.Errorf("tokens between: %w", err)
	}
	defer rows.Close()
	return tokensFromRows(rows)
}

// GetDocumentCounts returns the row counts for one document.
func GetDocumentCounts(db DBExecutor, urn string) (DocumentCounts, error) {
	var c DocumentCounts
	if err := db.QueryRow(`SELECT COUNT(*) FROM textparts WHERE document_urn = ?`, urn).Scan(&c.Textparts); err != nil {
		return c, fmt.Errorf("count textparts of %s: %w", urn, err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM elements WHERE document_urn = ?`, urn).Scan(&c.Elements); err != nil {
		return c, fmt.Errorf("count elements of %s: %w", urn, err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM tokens WHERE document_urn = ?`, urn).Scan(&c.Tokens); err != nil {
		return c, fmt.Errorf("count tokens of %s: %w", urn, err)
	}
	return c, nil
}

// GetStats returns whole-store row counts.
func GetStats(db DBExecutor) (Stats, error) {
	var s Stats
	for _, q := range []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM documents`, &s.Documents},
		{`SELECT COUNT(*) FROM textparts`, &s.Textparts},
		{`SELECT COUNT(*) FROM elements`, &s.Elements},
		{`SELECT COUNT(*) FROM tokens`, &s.Tokens},
	} {
		if err := db.QueryRow(q.query).Scan(q.dst); err != nil {
			return s, fmt.Errorf("store stats: %w", err)
		}
	}
	return s, nil
}

func scanTextpart(row *sql.Row) (*Textpart, error) {
	var tp Textpart
	var typ, subtype, n, location sql.NullString
	var idx sql.NullInt64
	if err := row.Scan(&tp.ID, &tp.DocumentURN, &tp.URN, &typ, &subtype, &n, &idx, &location); err != nil {
		return nil, err
	}
	tp.Type = typ.String
	tp.Subtype = subtype.String
	tp.N = n.String
	tp.Idx = int(idx.Int64)
	tp.Location = location.String
	return &tp, nil
}

func textpartsFromRows(rows *sql.Rows) ([]Textpart, error) {
	var out []Textpart
	for rows.Next() {
		var tp Textpart
		var typ, subtype, n, location sql.NullString
		var idx sql.NullInt64
		if err := rows.Scan(&tp.ID, &tp.DocumentURN, &tp.URN, &typ, &subtype, &n, &idx, &location); err != nil {
			return nil, err
		}
		tp.Type = typ.String
		tp.Subtype = subtype.String
		tp.N = n.String
		tp.Idx = int(idx.Int64)
		tp.Location = location.String
		out = append(out, tp)
	}
	return out, rows.Err()
}

func elementsFromRows(rows *sql.Rows) ([]Element, error) {
	var out []Element
	for rows.Next() {
		var el Element
		var textpartID, textpartIdx, parentID sql.NullInt64
		var idx sql.NullInt64
		var textpartURN, attrs sql.NullString
		if err := rows.Scan(&el.ID, &el.DocumentURN, &textpartID, &el.URN, &el.Tagname, &idx,
			&textpartURN, &textpartIdx, &parentID, &attrs); err != nil {
			return nil, err
		}
		el.TextpartID = textpartID.Int64
		el.Idx = int(idx.Int64)
		el.TextpartURN = textpartURN.String
		el.TextpartIdx = int(textpartIdx.Int64)
		el.ParentID = parentID.Int64
		el.Attributes = attrs.String
		out = append(out, el)
	}
	return out, rows.Err()
}

func tokensFromRows(rows *sql.Rows) ([]Token, error) {
	var out []Token
	for rows.Next() {
		var tok Token
		var textpartID, elementID sql.NullInt64
		var whitespace sql.NullBool
		var position sql.NullInt64
		if err := rows.Scan(&tok.ID, &tok.DocumentURN, &textpartID, &elementID,
			&tok.URN, &tok.Text, &whitespace, &position); err != nil {
			return nil, err
		}
		tok.TextpartID = textpartID.Int64
		tok.ElementID = elementID.Int64
		tok.Whitespace = whitespace.Bool
		tok.Position = int(position.Int64)
		out = append(out, tok)
	}
	return out, rows.Err()
}
