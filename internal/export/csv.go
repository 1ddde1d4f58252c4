// Package export renders transaction lists as CSV, in the layout the
// historical spreadsheet exports used: semicolon separated, CRLF line
// endings and decimal-comma amounts.
package export

import (
	"strconv"
	"strings"
	"time"

	"aurora/internal/core"
)

const (
	separator = ";"
	lineEnd   = "\r\n"
)

var header = []string{"ID", "Data", "Descrizione", "Categoria", "Importo"}

// CSV renders the given transactions in input order. The caller decides
// ordering and filtering; this function only formats.
func CSV(rows []core.Transaction) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, separator))
	b.WriteString(lineEnd)
	for _, t := range rows {
		fields := []string{
			escape(collapseWhitespace(t.ID)),
			escape(core.NormalizeISODate(t.Date)),
			escape(collapseWhitespace(t.Description)),
			escape(collapseWhitespace(t.Category)),
			escape(formatAmount(t.Amount)),
		}
		b.WriteString(strings.Join(fields, separator))
		b.WriteString(lineEnd)
	}
	return b.String()
}

// Filename returns the download name for an export generated today,
// e.g. "transazioni_2026-08-31.csv".
func Filename(now time.Time) string {
	return "transazioni_" + now.Format("2006-01-02") + ".csv"
}

// formatAmount renders the number's natural decimal form with a comma
// separator, matching the it-IT locale of the existing exports: -10.5
// becomes "-10,5" and 2100 stays "2100".
func formatAmount(v float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(v, 'f', -1, 64), ".", ",")
}

// collapseWhitespace folds runs of whitespace (including newlines) into
// a single space and trims the ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// escape quotes a field when it contains the separator, a quote or a
// line break, doubling embedded quotes.
func escape(s string) string {
	if !strings.ContainsAny(s, separator+"\"\n\r") {
		return s
	}
	return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
}
