package core

import (
	"strconv"
	"time"
)

// The document store is schemaless: every read path must tolerate missing
// or loosely-typed fields. Coercion is lenient (a bad importo becomes 0,
// a bad data becomes ""), favoring availability over strict validation
// for single-user input.

// CoerceAmount converts an arbitrary document value to a float64 amount,
// defaulting to zero when the value is absent or non-numeric.
func CoerceAmount(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return 0
}

func coerceString(v any) string {
	s, _ := v.(string)
	return s
}

func coerceTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// TransactionFromDoc maps a raw document onto a Transaction, applying the
// standard coercions and defaults.
func TransactionFromDoc(id string, data map[string]any) Transaction {
	return Transaction{
		ID:          id,
		Owner:       coerceString(data["utente"]),
		Date:        coerceString(data["data"]),
		Category:    coerceString(data["categoria"]),
		Subcategory: coerceString(data["sottocategoria"]),
		Description: coerceString(data["descrizione"]),
		Amount:      CoerceAmount(data["importo"]),
		CreatedAt:   coerceTime(data["createdAt"]),
	}.Normalize()
}

// Doc renders the transaction as wire fields for the document store.
func (t Transaction) Doc() map[string]any {
	return map[string]any{
		"utente":         t.Owner,
		"data":           t.Date,
		"categoria":      t.Category,
		"sottocategoria": t.Subcategory,
		"descrizione":    t.Description,
		"importo":        t.Amount,
		"createdAt":      t.CreatedAt,
	}
}

// MirrorDoc renders the transaction for the legacy per-owner namespace,
// which omits the owner field: the path already scopes ownership.
func (t Transaction) MirrorDoc() map[string]any {
	doc := t.Doc()
	delete(doc, "utente")
	return doc
}

func AccountFromDoc(id string, data map[string]any) Account {
	return Account{
		ID:       id,
		Owner:    coerceString(data["utente"]),
		Name:     coerceString(data["nome"]),
		Balance:  CoerceAmount(data["saldo"]),
		Currency: coerceString(data["valuta"]),
		Type:     coerceString(data["tipo"]),
	}
}

func (a Account) Doc() map[string]any {
	return map[string]any{
		"utente": a.Owner,
		"nome":   a.Name,
		"saldo":  a.Balance,
		"valuta": a.Currency,
		"tipo":   a.Type,
	}
}

func BudgetFromDoc(id string, data map[string]any) Budget {
	return Budget{
		ID:        id,
		Owner:     coerceString(data["utente"]),
		Category:  coerceString(data["categoria"]),
		Month:     coerceString(data["mese"]),
		Amount:    CoerceAmount(data["importo"]),
		UpdatedAt: coerceTime(data["updatedAt"]),
	}
}

func (b Budget) Doc() map[string]any {
	return map[string]any{
		"utente":    b.Owner,
		"categoria": b.Category,
		"mese":      b.Month,
		"importo":   b.Amount,
		"updatedAt": b.UpdatedAt,
	}
}

func GoalFromDoc(id string, data map[string]any) Goal {
	g := Goal{
		ID:        id,
		Owner:     coerceString(data["utente"]),
		Title:     coerceString(data["titolo"]),
		Deadline:  NormalizeISODate(coerceString(data["deadline"])),
		Status:    coerceString(data["stato"]),
		CreatedAt: coerceTime(data["createdAt"]),
	}
	if g.Status == "" {
		g.Status = GoalActive
	}
	return g
}

func (g Goal) Doc() map[string]any {
	return map[string]any{
		"utente":    g.Owner,
		"titolo":    g.Title,
		"deadline":  g.Deadline,
		"stato":     g.Status,
		"createdAt": g.CreatedAt,
	}
}

// CategoriesFromDoc decodes the taxonomy document `categorie/{owner}`,
// whose single field "lista" holds the ordered category entries.
func CategoriesFromDoc(data map[string]any) []Category {
	raw, ok := data["lista"].([]any)
	if !ok {
		return nil
	}
	out := make([]Category, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cat := Category{Name: coerceString(entry["nome"])}
		if subs, ok := entry["sottocategorie"].([]any); ok {
			for _, s := range subs {
				if name := coerceString(s); name != "" {
					cat.Subcategories = append(cat.Subcategories, name)
				}
			}
		}
		if cat.Name != "" {
			out = append(out, cat)
		}
	}
	return out
}

// CategoriesDoc renders a taxonomy as the `categorie/{owner}` document.
func CategoriesDoc(cats []Category) map[string]any {
	list := make([]any, 0, len(cats))
	for _, c := range cats {
		subs := make([]any, 0, len(c.Subcategories))
		for _, s := range c.Subcategories {
			subs = append(subs, s)
		}
		list = append(list, map[string]any{
			"nome":           c.Name,
			"sottocategorie": subs,
		})
	}
	return map[string]any{"lista": list}
}
