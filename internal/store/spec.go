package store

import (
	"fmt"
	"strconv"
)

// Filter operators understood by every adapter.
const (
	OpEqual = "=="
	OpGTE   = ">="
	OpLTE   = "<="
)

type (
	// Filter is one field predicate.
	Filter struct {
		Field string
		Op    string
		Value any
	}

	// Cursor points at one document's position within a sorted result
	// set: the order-field value plus the document ID as tie-break. A
	// cursor is only valid for the exact Spec (filters + sort) that
	// produced it.
	Cursor struct {
		Value any    `json:"v"`
		ID    string `json:"id"`
	}

	// Spec describes one query. Predicates compose in slice order;
	// ordering is by a single field with a document-ID tie-break in the
	// same direction.
	Spec struct {
		Collection string
		Filters    []Filter
		OrderBy    string
		Descending bool

		// StartAfter resumes strictly after the cursor (forward
		// pagination); EndBefore stops strictly before it (backward).
		StartAfter *Cursor
		EndBefore  *Cursor

		// Limit caps from the front of the matching set; LimitToLast
		// caps from the end, returning the kept rows in query order.
		// At most one of the two is set.
		Limit       int
		LimitToLast int
	}
)

// NewSpec starts a query on a collection.
func NewSpec(collection string) Spec {
	return Spec{Collection: collection}
}

func (s Spec) Where(field, op string, value any) Spec {
	s.Filters = append(s.Filters, Filter{Field: field, Op: op, Value: value})
	return s
}

func (s Spec) OrderDesc(field string) Spec {
	s.OrderBy = field
	s.Descending = true
	return s
}

func (s Spec) OrderAsc(field string) Spec {
	s.OrderBy = field
	s.Descending = false
	return s
}

// CursorFor derives a pagination cursor from a fetched document under
// this spec's ordering.
func (s Spec) CursorFor(doc Document) Cursor {
	return Cursor{Value: doc.Data[s.OrderBy], ID: doc.ID}
}

// CompareValues orders two field values: numbers numerically when both
// sides coerce, strings lexicographically otherwise. Adapters use it for
// predicate evaluation and cursor placement.
func CompareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := toComparableString(a), toComparableString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toComparableString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Matches evaluates every filter of the spec against a document.
func (s Spec) Matches(doc Document) bool {
	for _, f := range s.Filters {
		cmp := CompareValues(doc.Data[f.Field], f.Value)
		switch f.Op {
		case OpEqual:
			if cmp != 0 {
				return false
			}
		case OpGTE:
			if cmp < 0 {
				return false
			}
		case OpLTE:
			if cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Less orders two documents under the spec's sort: order field first,
// document ID tie-break, both inverted when descending.
func (s Spec) Less(a, b Document) bool {
	cmp := CompareValues(a.Data[s.OrderBy], b.Data[s.OrderBy])
	if cmp == 0 {
		switch {
		case a.ID < b.ID:
			cmp = -1
		case a.ID > b.ID:
			cmp = 1
		}
	}
	if s.Descending {
		return cmp > 0
	}
	return cmp < 0
}

// CursorLess orders a document against a cursor under the spec's sort.
// Used to apply StartAfter/EndBefore without materializing the cursor's
// document.
func (s Spec) CursorLess(doc Document, c Cursor) bool {
	return s.Less(doc, Document{ID: c.ID, Data: map[string]any{s.OrderBy: c.Value}})
}

// CursorEqual reports whether a document sits exactly at the cursor.
func (s Spec) CursorEqual(doc Document, c Cursor) bool {
	return doc.ID == c.ID && CompareValues(doc.Data[s.OrderBy], c.Value) == 0
}

// Trim applies the spec's cursors and limits to an already-sorted
// matching set. Shared by the adapters that evaluate pagination
// client-side.
func (s Spec) Trim(docs []Document) []Document {
	if c := s.StartAfter; c != nil {
		kept := docs[:0]
		for _, doc := range docs {
			// Keep only documents strictly after the cursor in query order.
			if !s.CursorLess(doc, *c) && !s.CursorEqual(doc, *c) {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}
	if c := s.EndBefore; c != nil {
		kept := docs[:0]
		for _, doc := range docs {
			if s.CursorLess(doc, *c) {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}
	if s.Limit > 0 && len(docs) > s.Limit {
		docs = docs[:s.Limit]
	}
	if s.LimitToLast > 0 && len(docs) > s.LimitToLast {
		docs = docs[len(docs)-s.LimitToLast:]
	}
	return docs
}
