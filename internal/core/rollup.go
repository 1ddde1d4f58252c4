package core

import (
	"math"
	"sort"
)

type (
	// KPI is the rollup set shown on the dashboard. All values are
	// recomputed from full row sets on every update; there is no delta
	// arithmetic anywhere.
	KPI struct {
		NetBalance          float64 `json:"saldoTotale"`
		TotalIncome         float64 `json:"entrateTotali"`
		TotalExpense        float64 `json:"usciteTotali"`
		CurrentMonthExpense float64 `json:"speseMese"`
	}

	// MonthFlow is one bar of the entrate/uscite monthly series.
	MonthFlow struct {
		Key     string  `json:"mese"`
		Income  float64 `json:"entrate"`
		Expense float64 `json:"uscite"`
	}

	// CategoryTotal is the absolute expense sum for one category.
	CategoryTotal struct {
		Category string  `json:"categoria"`
		Total    float64 `json:"totale"`
	}

	// Totals summarizes a visible (post-filter) transaction set.
	Totals struct {
		Income  float64 `json:"entrate"`
		Expense float64 `json:"uscite"`
		Net     float64 `json:"netto"`
	}
)

// ComputeKPI folds a row set into the dashboard rollups. currentMonth is
// a YYYY-MM key; a negative row contributes to CurrentMonthExpense only
// when its normalized date falls in that month.
func ComputeKPI(rows []Transaction, currentMonth string) KPI {
	var k KPI
	for _, t := range rows {
		if t.Amount >= 0 {
			k.TotalIncome += t.Amount
		} else {
			k.TotalExpense += math.Abs(t.Amount)
		}
		if iso := NormalizeISODate(t.Date); iso != "" && t.Amount < 0 && MonthKey(iso) == currentMonth {
			k.CurrentMonthExpense += math.Abs(t.Amount)
		}
	}
	k.NetBalance = k.TotalIncome - k.TotalExpense
	return k
}

// ComputeTotals sums the visible set after client-side filtering.
func ComputeTotals(rows []Transaction) Totals {
	var tot Totals
	for _, t := range rows {
		if t.Amount >= 0 {
			tot.Income += t.Amount
		} else {
			tot.Expense += math.Abs(t.Amount)
		}
	}
	tot.Net = tot.Income - tot.Expense
	return tot
}

// MonthlyFlows groups rows by month key and splits each month into income
// and absolute expense. Rows without a valid date are skipped. The result
// is sorted by month key ascending.
func MonthlyFlows(rows []Transaction) []MonthFlow {
	byMonth := make(map[string]*MonthFlow)
	for _, t := range rows {
		key := MonthKey(t.Date)
		if key == "" {
			continue
		}
		f, ok := byMonth[key]
		if !ok {
			f = &MonthFlow{Key: key}
			byMonth[key] = f
		}
		if t.Amount >= 0 {
			f.Income += t.Amount
		} else {
			f.Expense += math.Abs(t.Amount)
		}
	}
	out := make([]MonthFlow, 0, len(byMonth))
	for _, f := range byMonth {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ExpenseByCategory sums the absolute value of negative rows per
// category. Uncategorized rows fall under DefaultCategory. The result is
// sorted by descending total, then category name for determinism.
func ExpenseByCategory(rows []Transaction) []CategoryTotal {
	byCat := make(map[string]float64)
	for _, t := range rows {
		if t.Amount >= 0 {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = DefaultCategory
		}
		byCat[cat] += math.Abs(t.Amount)
	}
	out := make([]CategoryTotal, 0, len(byCat))
	for cat, total := range byCat {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}
