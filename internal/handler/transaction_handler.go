package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/middleware"
	"github.com/luiseel/money/internal/models"
	"github.com/luiseel/money/internal/repository"
	"github.com/luiseel/money/internal/utils"
)

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, cmd cqrs.DeleteTransactionCommand) (*models.Transaction, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionView, error)
	ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionPage, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

type CreateTransactionRequest struct {
	Type    string          `json:"type" validate:"omitempty,oneof=EXPENSE INCOME"`
	Amount  decimal.Decimal `json:"amount"`
	Title   string          `json:"title" validate:"required"`
	Tags    []string        `json:"tags"`
	Applied bool            `json:"applied"`
}

// ListTransactionsRequest carries the raw query string. Dates arrive as
// strings so both RFC 3339 timestamps and plain dates can be accepted.
type ListTransactionsRequest struct {
	Page      int      `form:"page,default=1" validate:"gt=0"`
	Limit     int      `form:"limit,default=10" validate:"gt=0"`
	Type      string   `form:"type" validate:"omitempty,oneof=EXPENSE INCOME"`
	Title     string   `form:"title"`
	Tags      []string `form:"tags"`
	StartDate string   `form:"startDate"`
	EndDate   string   `form:"endDate"`
	Applied   *bool    `form:"applied"`
	SortBy    string   `form:"sortBy,default=createdAt" validate:"oneof=createdAt title"`
	SortOrder string   `form:"sortOrder,default=desc" validate:"oneof=asc desc"`
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	subject, _ := middleware.GetSubject(c)

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	filter := cqrs.TransactionFilter{
		Page:      req.Page,
		Limit:     req.Limit,
		Type:      req.Type,
		Title:     req.Title,
		Tags:      req.Tags,
		Applied:   req.Applied,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	var ok bool
	if filter.StartDate, ok = parseFilterDate(req.StartDate); !ok {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{
			{Field: "StartDate", Message: "Invalid date format", Type: "datetime"},
		})
		return
	}
	if filter.EndDate, ok = parseFilterDate(req.EndDate); !ok {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{
			{Field: "EndDate", Message: "Invalid date format", Type: "datetime"},
		})
		return
	}

	page, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		SubjectID: subject,
		Filter:    filter,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	subject, _ := middleware.GetSubject(c)
	transactionID := c.Param("transactionId")
	if !utils.ValidateTransactionID(transactionID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	view, err := h.queries.GetTransaction(c.Request.Context(), cqrs.GetTransactionQuery{
		SubjectID:     subject,
		TransactionID: transactionID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Transaction not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get transaction")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	subject, _ := middleware.GetSubject(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	if !req.Amount.IsPositive() {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{
			{Field: "Amount", Message: "Value must be greater than 0", Type: "gt"},
		})
		return
	}

	transaction, err := h.commands.CreateTransaction(c.Request.Context(), cqrs.CreateTransactionCommand{
		SubjectID: subject,
		Type:      req.Type,
		Amount:    req.Amount,
		Title:     req.Title,
		Tags:      req.Tags,
		Applied:   req.Applied,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	c.JSON(http.StatusCreated, transaction)
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	subject, _ := middleware.GetSubject(c)
	transactionID := c.Param("transactionId")
	if !utils.ValidateTransactionID(transactionID) {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	transaction, err := h.commands.DeleteTransaction(c.Request.Context(), cqrs.DeleteTransactionCommand{
		SubjectID:     subject,
		TransactionID: transactionID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Transaction not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// parseFilterDate accepts RFC 3339 timestamps or plain yyyy-mm-dd dates.
// An empty input is an absent filter, not an error.
func parseFilterDate(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, true
	}
	return nil, false
}
