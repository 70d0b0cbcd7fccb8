package cqrs

import "github.com/shopspring/decimal"

// ReconcileUserCommand upserts the local projection of an identity-provider
// user, keyed by the external subject id.
type ReconcileUserCommand struct {
	SubjectID string
	Name      string
	Email     string
}

// SoftDeleteUserCommand marks a user deleted while retaining the row.
type SoftDeleteUserCommand struct {
	SubjectID string
}

type CreateTransactionCommand struct {
	SubjectID string
	Type      string
	Amount    decimal.Decimal
	Title     string
	Tags      []string
	Applied   bool
}

type DeleteTransactionCommand struct {
	SubjectID     string
	TransactionID string
}
