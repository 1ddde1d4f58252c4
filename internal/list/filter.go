// Package list implements the in-memory refinement applied on top of a
// fetched transaction page: text search, type/month/category filters and
// the selectable sort orders, plus the debounced search input.
package list

import (
	"math"
	"sort"
	"strings"

	"aurora/internal/core"
)

// Kind selects which sign of transaction passes the filter.
type Kind string

const (
	KindAll     Kind = "tutte"
	KindIncome  Kind = "entrate"
	KindExpense Kind = "uscite"
)

// Sort selects the ordering applied after filtering.
type Sort string

const (
	SortDateDesc    Sort = "data"
	SortAmountDesc  Sort = "importo"
	SortCategoryAsc Sort = "categoria"
)

// Criteria describes one refinement pass. The zero value passes
// everything through in date-descending order.
type Criteria struct {
	Search      string
	Kind        Kind
	Month       string
	Category    string
	Subcategory string
	Sort        Sort
}

// Apply filters and sorts a copy of rows. The input slice is not
// modified.
func Apply(rows []core.Transaction, c Criteria) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, t := range rows {
		if matches(t, c) {
			out = append(out, t)
		}
	}
	sortRows(out, c.Sort)
	return out
}

func matches(t core.Transaction, c Criteria) bool {
	if q := strings.ToLower(strings.TrimSpace(c.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			return false
		}
	}
	switch c.Kind {
	case KindIncome:
		if !t.IsIncome() {
			return false
		}
	case KindExpense:
		if t.IsIncome() {
			return false
		}
	}
	if c.Month != "" && core.MonthKey(t.Date) != c.Month {
		return false
	}
	if c.Category != "" && t.Category != c.Category {
		return false
	}
	if c.Subcategory != "" && t.Subcategory != c.Subcategory {
		return false
	}
	return true
}

func sortRows(rows []core.Transaction, s Sort) {
	switch s {
	case SortAmountDesc:
		sort.SliceStable(rows, func(i, j int) bool {
			return math.Abs(rows[i].Amount) > math.Abs(rows[j].Amount)
		})
	case SortCategoryAsc:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Category < rows[j].Category
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Date > rows[j].Date
		})
	}
}
