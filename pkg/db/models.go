package db

import "time"

// Document is one committed source document.
type Document struct {
	URN       string
	Lang      string
	CreatedAt time.Time
}

// Textpart is a committed citation node. Location is the dotted
// citation path; Idx is the sibling index within the parent scope.
type Textpart struct {
	ID          int64
	DocumentURN string
	URN         string
	Type        string
	Subtype     string
	N           string
	Idx         int
	Location    string
}

// Element is a committed markup node. TextpartID and ParentID are 0
// when the corresponding column is NULL; TextpartURN and TextpartIdx
// mirror the owning textpart and are only meaningful when TextpartID
// is set. Attributes holds the source attributes as a JSON object.
type Element struct {
	ID          int64
	DocumentURN string
	TextpartID  int64
	URN         string
	Tagname     string
	Idx         int
	TextpartURN string
	TextpartIdx int
	ParentID    int64
	Attributes  string
}

// Token is one committed indexed word. ElementID is 0 when the token
// sat outside any element; Position is the token's rank within its
// textpart.
type Token struct {
	ID          int64
	DocumentURN string
	TextpartID  int64
	ElementID   int64
	URN         string
	Text        string
	Whitespace  bool
	Position    int
}

// Stats summarizes row counts across the store.
type Stats struct {
	Documents int64
	Textparts int64
	Elements  int64
	Tokens    int64
}

// DocumentCounts summarizes one document's rows.
type DocumentCounts struct {
	Textparts int64
	Elements  int64
	Tokens    int64
}
