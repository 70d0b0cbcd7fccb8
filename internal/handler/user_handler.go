package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/events"
	"github.com/luiseel/money/internal/identity"
	"github.com/luiseel/money/internal/middleware"
	"github.com/luiseel/money/internal/models"
	"github.com/luiseel/money/internal/repository"
)

// UserLifecycleCommander defines the reconcile operations used by UserHandler.
type UserLifecycleCommander interface {
	ReconcileUser(ctx context.Context, cmd cqrs.ReconcileUserCommand) (*models.User, error)
	SoftDeleteUser(ctx context.Context, cmd cqrs.SoftDeleteUserCommand) (*models.User, error)
}

// UserHandler consumes identity-provider lifecycle webhooks.
type UserHandler struct {
	commands UserLifecycleCommander
}

func NewUserHandler(commands UserLifecycleCommander) *UserHandler {
	return &UserHandler{commands: commands}
}

// LifecycleEventRequest is the webhook envelope. Data stays raw until the
// event kind is known: only the kinds this service acts on decode it as a
// user payload, so unknown kinds with arbitrary payload shapes still bind.
type LifecycleEventRequest struct {
	Type   string          `json:"type" validate:"required"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type IgnoredEventResponse struct {
	Status string `json:"status"`
	Event  string `json:"event"`
}

func (h *UserHandler) HandleLifecycleEvent(c *gin.Context) {
	var req LifecycleEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	switch req.Type {
	case events.UserCreated, events.UserUpdated:
		var payload identity.UserPayload
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if validationErrors := middleware.ValidateRequest(payload); validationErrors != nil {
			middleware.RespondWithValidationError(c, validationErrors)
			return
		}
		user, err := h.commands.ReconcileUser(c.Request.Context(), cqrs.ReconcileUserCommand{
			SubjectID: payload.ID,
			Name:      payload.DisplayName(),
			Email:     payload.PrimaryEmail(),
		})
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				middleware.RespondWithError(c, http.StatusConflict, "User already exists")
				return
			}
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to reconcile user")
			return
		}
		c.JSON(http.StatusOK, user)

	case events.UserDeleted:
		var payload identity.UserPayload
		if err := json.Unmarshal(req.Data, &payload); err != nil || payload.ID == "" {
			middleware.RespondWithValidationError(c, []middleware.ValidationError{
				{Field: "ID", Message: "This field is required", Type: "required"},
			})
			return
		}
		user, err := h.commands.SoftDeleteUser(c.Request.Context(), cqrs.SoftDeleteUserCommand{
			SubjectID: payload.ID,
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				middleware.RespondWithError(c, http.StatusNotFound, "User not found")
				return
			}
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user")
			return
		}
		c.JSON(http.StatusOK, user)

	default:
		c.JSON(http.StatusOK, IgnoredEventResponse{Status: "ignored", Event: req.Type})
	}
}
