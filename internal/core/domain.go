package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collection names as they exist in the document store. The Italian field
// and collection names are the wire contract and must not be translated.
const (
	CollectionTransactions = "transazioni"
	CollectionAccounts     = "conti"
	CollectionBudgets      = "budget"
	CollectionGoals        = "obiettivi"
	CollectionCategories   = "categorie"

	// namespaceRoot is the legacy per-owner partition. It is written only
	// by the mirror worker, never directly by request handlers.
	namespaceRoot = "Aurora"
)

// Default category assigned when a transaction carries none.
const DefaultCategory = "Altro"

// Goal states. Only "attivo" is ever assigned in the current flows; the
// field is kept for forward compatibility.
const (
	GoalActive = "attivo"
)

// Supported account currencies.
var Currencies = []string{"EUR", "USD", "GBP"}

var (
	ErrNoPrincipal     = errors.New("no authenticated principal")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidMonthKey = errors.New("invalid month key, want YYYY-MM")
	ErrInvalidDeadline = errors.New("invalid deadline, want YYYY-MM-DD")
	ErrEmptyCategory   = errors.New("empty category")
)

// OwnerTransactions returns the path of the legacy per-owner transaction
// namespace for the given principal.
func OwnerTransactions(owner string) string {
	return namespaceRoot + "/" + owner + "/" + CollectionTransactions
}

type (
	// Transaction is the central entity. Amount sign encodes direction:
	// non-negative is income (entrata), negative is expense (uscita).
	Transaction struct {
		ID          string    `json:"id"`
		Owner       string    `json:"utente"`
		Date        string    `json:"data"` // YYYY-MM-DD, empty when unknown
		Category    string    `json:"categoria"`
		Subcategory string    `json:"sottocategoria"`
		Description string    `json:"descrizione"`
		Amount      float64   `json:"importo"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// Account is a named money container (conto).
	Account struct {
		ID       string  `json:"id"`
		Owner    string  `json:"utente"`
		Name     string  `json:"nome"`
		Balance  float64 `json:"saldo"`
		Currency string  `json:"valuta"`
		Type     string  `json:"tipo"`
	}

	// Budget is a monthly spending cap. Exactly one budget exists per
	// owner and month, enforced by the deterministic document ID.
	Budget struct {
		ID        string    `json:"id"`
		Owner     string    `json:"utente"`
		Category  string    `json:"categoria,omitempty"`
		Month     string    `json:"mese"` // YYYY-MM
		Amount    float64   `json:"importo"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// Goal is a savings goal (obiettivo) with a deadline.
	Goal struct {
		ID        string    `json:"id"`
		Owner     string    `json:"utente"`
		Title     string    `json:"titolo"`
		Deadline  string    `json:"deadline"` // YYYY-MM-DD
		Status    string    `json:"stato"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Category is one taxonomy entry: a name and its ordered
	// subcategories.
	Category struct {
		Name          string   `json:"nome"`
		Subcategories []string `json:"sottocategorie"`
	}
)

// BudgetID builds the deterministic budget document ID for an owner and a
// YYYY-MM month key. Saving through this ID makes the monthly budget a
// last-write-wins upsert.
func BudgetID(owner, month string) string {
	return owner + "_" + month
}

// Normalize fills defaults and coerces loosely-typed fields the way every
// read path expects them: date clipped to YYYY-MM-DD, category defaulted,
// amount already coerced by the document mapping.
func (t Transaction) Normalize() Transaction {
	t.Date = NormalizeISODate(t.Date)
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}
	return t
}

// IsIncome reports whether the transaction is an entrata. Zero amounts
// count as income, matching the sign convention used by every rollup.
func (t Transaction) IsIncome() bool { return t.Amount >= 0 }

func (t Transaction) Validate() error {
	if t.Amount == 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	for _, c := range Currencies {
		if a.Currency == c {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidCurrency, a.Currency)
}

func (b Budget) Validate() error {
	if b.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !IsMonthKey(b.Month) {
		return fmt.Errorf("%w: %q", ErrInvalidMonthKey, b.Month)
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if NormalizeISODate(g.Deadline) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDeadline, g.Deadline)
	}
	return nil
}
