package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Page size bounds shared by keyset queries and full-table dumps.
const (
	DefaultPageSize = 100
	MaxPageSize     = 5000
)

// PaginationParams contains id-keyset dump parameters.
type PaginationParams struct {
	Limit   int    // Items per page (defaults to DefaultPageSize, capped at MaxPageSize)
	AfterID string // Exclusive lower bound on id (empty for the first page)
}

// PaginatedResult contains one page of an id-ordered dump.
type PaginatedResult[T any] struct {
	Items   []T    `json:"items"`
	LastID  string `json:"last_id,omitempty"` // Pass as AfterID for the next page
	HasMore bool   `json:"has_more"`
}

// DefaultPaginationParams returns the parameters for a first page.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: DefaultPageSize}
}

// Validate clamps the limit into range.
func (p *PaginationParams) Validate() {
	p.Limit = ClampPageSize(p.Limit)
}

// ClampPageSize applies the default and maximum page size.
func ClampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Boundary is a keyset cursor: the ordering value and id of the first record of a page.
type Boundary struct {
	OrderValue string `json:"order_value"`
	ID         string `json:"id"`
}

// EncodeCursor creates an opaque cursor from a boundary.
func EncodeCursor(b Boundary) string {
	if b.ID == "" {
		return ""
	}
	raw, _ := json.Marshal(b)
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor decodes a cursor back to a boundary. The empty cursor decodes to nil.
func DecodeCursor(cursor string) (*Boundary, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}

	var b Boundary
	if err := json.Unmarshal(decoded, &b); err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	if b.ID == "" {
		return nil, fmt.Errorf("invalid cursor: missing id")
	}
	return &b, nil
}

// Keyset lists the first record of every page of a filtered, ordered view.
type Keyset struct {
	Boundaries []Boundary `json:"keyset"`
	Total      int        `json:"total"`
}

// Range is a half-open [Start, End) window of row positions in a filtered, ordered view.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of positions in the range.
func (r Range) Len() int {
	return r.End - r.Start
}
