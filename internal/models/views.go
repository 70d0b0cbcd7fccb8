package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserView is the read-optimised projection of a user, cached by subject id.
// Soft-deleted users keep a view so identity resolution still succeeds for them.
type UserView struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedAt time.Time `json:"updatedTimestamp"`
}

// TransactionView is the read-optimised projection of a transaction.
// UserID is populated for ownership checks but never serialised to the API response.
type TransactionView struct {
	ID        string          `json:"id"`
	UserID    string          `json:"-"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Title     string          `json:"title"`
	Tags      []string        `json:"tags"`
	Applied   bool            `json:"applied"`
	CreatedAt time.Time       `json:"createdTimestamp"`
}

// PageMeta describes the pagination window of a list response.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// TransactionPage is the list-endpoint envelope.
type TransactionPage struct {
	Data []TransactionView `json:"data"`
	Meta PageMeta          `json:"meta"`
}
