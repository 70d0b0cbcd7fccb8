package events

import "time"

// Event types
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"

	TransactionCreated = "transaction.created"
	TransactionDeleted = "transaction.deleted"
)

// Stream names
const (
	UserEventsStream        = "user.events"
	TransactionEventsStream = "transaction.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// User events carry the external subject id so downstream consumers can
// correlate with the identity provider.
type UserCreatedEvent struct {
	UserID    string `json:"userId"`
	SubjectID string `json:"subjectId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

type UserUpdatedEvent struct {
	UserID    string `json:"userId"`
	SubjectID string `json:"subjectId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

type UserDeletedEvent struct {
	UserID    string `json:"userId"`
	SubjectID string `json:"subjectId"`
}

// Transaction events
type TransactionCreatedEvent struct {
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	Title         string `json:"title"`
}

type TransactionDeletedEvent struct {
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
}
