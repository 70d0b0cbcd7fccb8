package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Transaction types. EXPENSE is the default when a request omits the field.
const (
	TransactionTypeExpense = "EXPENSE"
	TransactionTypeIncome  = "INCOME"
)

// User is the local projection of an identity-provider user. Rows are never
// hard-deleted; lifecycle "deleted" events set the Deleted flag instead.
type User struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedAt time.Time `json:"updatedTimestamp"`
}

// Transaction is an income or expense record owned by exactly one user.
// UserID is the internal user id, never the external subject id.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"-"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Title     string          `json:"title"`
	Tags      pq.StringArray  `json:"tags"`
	Applied   bool            `json:"applied"`
	CreatedAt time.Time       `json:"createdTimestamp"`
}
