package db

import (
	"sort"
	"testing"
)

// tableColumns reads the column names of a table through PRAGMA
// table_info.
func tableColumns(t *testing.T, conn DBExecutor, table string) []string {
	t.Helper()
	rows, err := conn.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan column of %s: %v", table, err)
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestInitDBCreatesSchema verifies the four citation relations come up
// with exactly their expected columns.
func TestInitDBCreatesSchema(t *testing.T) {
	conn, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	want := map[string][]string{
		"documents": {"created_at", "lang", "urn"},
		"textparts": {"document_urn", "id", "idx", "location", "n", "subtype", "type", "urn"},
		"elements":  {"attributes", "document_urn", "id", "idx", "parent_id", "tagname", "textpart_id", "textpart_index", "textpart_urn", "urn"},
		"tokens":    {"document_urn", "element_id", "id", "position", "text", "textpart_id", "urn", "whitespace"},
	}
	for table, wantCols := range want {
		got := tableColumns(t, conn, table)
		if !equalStrings(got, wantCols) {
			t.Errorf("%s columns = %v, want %v", table, got, wantCols)
		}
	}
}

func TestInitDBCreatesIndices(t *testing.T) {
	conn, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	rows, err := conn.Query(`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE 'idx_%' ORDER BY name`)
	if err != nil {
		t.Fatalf("list indices: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		got = append(got, name)
	}
	want := []string{
		"idx_elements_document",
		"idx_elements_textpart",
		"idx_textparts_document",
		"idx_tokens_document",
		"idx_tokens_element",
		"idx_tokens_textpart",
	}
	if !equalStrings(got, want) {
		t.Errorf("indices = %v, want %v", got, want)
	}
}

func TestInitDBIsIdempotent(t *testing.T) {
	conn, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := InitDB(conn); err != nil {
		t.Fatalf("second InitDB failed: %v", err)
	}
	if err := InitDB(conn); err != nil {
		t.Fatalf("third InitDB failed: %v", err)
	}
}

func TestSchemaVersionRecorded(t *testing.T) {
	conn, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	v, err := SchemaVersion(conn)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != schemaVersion {
		t.Errorf("schema version = %q, want %q", v, schemaVersion)
	}
}

func TestTextpartURNUniqueConstraint(t *testing.T) {
	conn, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(`INSERT INTO documents (urn, lang) VALUES ('urn:x:y', 'grc')`); err != nil {
		t.Fatalf("insert document: %v", err)
	}
	insert := `INSERT INTO textparts (document_urn, urn, type, subtype, n, idx, location)
		VALUES ('urn:x:y', 'urn:x:y:1', 'textpart', 'chapter', '1', 0, '1')`
	if _, err := conn.Exec(insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = conn.Exec(insert)
	if err == nil {
		t.Fatal("duplicate textpart urn accepted")
	}
	if !isUniqueConstraintErr(err) {
		t.Errorf("error %v not recognized as a unique violation", err)
	}
}
