package cqrs

import "time"

// Sort keys accepted by ListTransactionsQuery.
const (
	SortByCreatedAt = "createdAt"
	SortByTitle     = "title"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ---------- User queries ----------

// ResolveUserQuery maps an external subject id to the internal user record.
type ResolveUserQuery struct {
	SubjectID string
}

// ---------- Transaction queries ----------

// GetTransactionQuery fetches a single transaction owned by the caller.
type GetTransactionQuery struct {
	SubjectID     string
	TransactionID string
}

// TransactionFilter is the validated parameter set for a list call.
// Zero/nil fields are absent filters and must not appear in the predicate.
type TransactionFilter struct {
	Page      int
	Limit     int
	Type      string
	Title     string
	Tags      []string
	StartDate *time.Time
	EndDate   *time.Time
	Applied   *bool
	SortBy    string
	SortOrder string
}

// Offset is the pagination window start for the current page.
func (f TransactionFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ListTransactionsQuery fetches one page of the caller's transactions.
type ListTransactionsQuery struct {
	SubjectID string
	Filter    TransactionFilter
}
