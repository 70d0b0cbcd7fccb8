package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/models"
	"github.com/luiseel/money/internal/repository"
)

// ---- mock implementations ----

type mockUserCommander struct {
	reconcileFn  func(cqrs.ReconcileUserCommand) (*models.User, error)
	softDeleteFn func(cqrs.SoftDeleteUserCommand) (*models.User, error)
}

func (m *mockUserCommander) ReconcileUser(_ context.Context, cmd cqrs.ReconcileUserCommand) (*models.User, error) {
	if m.reconcileFn != nil {
		return m.reconcileFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockUserCommander) SoftDeleteUser(_ context.Context, cmd cqrs.SoftDeleteUserCommand) (*models.User, error) {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newUserTestRouter(cmds UserLifecycleCommander) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewUserHandler(cmds)
	r.POST("/v1/users/webhook", h.HandleLifecycleEvent)
	return r
}

func userDoRequest(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, "/v1/users/webhook", strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func lifecyclePayload(eventType string) map[string]interface{} {
	return map[string]interface{}{
		"type":   eventType,
		"object": "event",
		"data": map[string]interface{}{
			"id":         "subj-001",
			"first_name": "Jane",
			"last_name":  "Doe",
			"email_addresses": []map[string]interface{}{
				{"id": "em-2", "email_address": "jane.old@example.com"},
				{"id": "em-1", "email_address": "jane@example.com"},
			},
			"primary_email_address_id": "em-1",
		},
	}
}

var userTestUser = &models.User{
	ID: "usr-001", SubjectID: "subj-001",
	Name: "Jane Doe", Email: "jane@example.com",
	CreatedAt: time.Now(), UpdatedAt: time.Now(),
}

// ---- tests ----

func TestHandleLifecycleEventReconciles(t *testing.T) {
	for _, eventType := range []string{"user.created", "user.updated"} {
		t.Run(eventType, func(t *testing.T) {
			var captured cqrs.ReconcileUserCommand
			cmds := &mockUserCommander{
				reconcileFn: func(cmd cqrs.ReconcileUserCommand) (*models.User, error) {
					captured = cmd
					return userTestUser, nil
				},
			}
			w := userDoRequest(newUserTestRouter(cmds), lifecyclePayload(eventType))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d; body: %s", w.Code, w.Body.String())
			}
			if captured.SubjectID != "subj-001" {
				t.Errorf("expected subject subj-001, got %q", captured.SubjectID)
			}
			if captured.Name != "Jane Doe" {
				t.Errorf("expected projected name 'Jane Doe', got %q", captured.Name)
			}
			if captured.Email != "jane@example.com" {
				t.Errorf("expected primary email, got %q", captured.Email)
			}
		})
	}
}

func TestHandleLifecycleEventNameProjection(t *testing.T) {
	tests := []struct {
		name          string
		firstName     interface{}
		lastName      interface{}
		expectedName  string
	}{
		{name: "both parts", firstName: "Jane", lastName: "Doe", expectedName: "Jane Doe"},
		{name: "given only", firstName: "Jane", lastName: nil, expectedName: "Jane"},
		{name: "family only", firstName: nil, lastName: "Doe", expectedName: "Doe"},
		{name: "both absent", firstName: nil, lastName: nil, expectedName: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured cqrs.ReconcileUserCommand
			cmds := &mockUserCommander{
				reconcileFn: func(cmd cqrs.ReconcileUserCommand) (*models.User, error) {
					captured = cmd
					return userTestUser, nil
				},
			}
			payload := lifecyclePayload("user.created")
			data := payload["data"].(map[string]interface{})
			data["first_name"] = tt.firstName
			data["last_name"] = tt.lastName

			w := userDoRequest(newUserTestRouter(cmds), payload)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d; body: %s", w.Code, w.Body.String())
			}
			if captured.Name != tt.expectedName {
				t.Errorf("expected name %q, got %q", tt.expectedName, captured.Name)
			}
		})
	}
}

func TestHandleLifecycleEventEmailFallback(t *testing.T) {
	var captured cqrs.ReconcileUserCommand
	cmds := &mockUserCommander{
		reconcileFn: func(cmd cqrs.ReconcileUserCommand) (*models.User, error) {
			captured = cmd
			return userTestUser, nil
		},
	}

	// No primary id: first listed address wins
	payload := lifecyclePayload("user.created")
	payload["data"].(map[string]interface{})["primary_email_address_id"] = nil
	w := userDoRequest(newUserTestRouter(cmds), payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if captured.Email != "jane.old@example.com" {
		t.Errorf("expected first listed address, got %q", captured.Email)
	}

	// No addresses at all: empty string
	payload = lifecyclePayload("user.created")
	payload["data"].(map[string]interface{})["email_addresses"] = []map[string]interface{}{}
	payload["data"].(map[string]interface{})["primary_email_address_id"] = nil
	w = userDoRequest(newUserTestRouter(cmds), payload)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if captured.Email != "" {
		t.Errorf("expected empty email, got %q", captured.Email)
	}
}

func TestHandleLifecycleEventDeleted(t *testing.T) {
	tests := []struct {
		name           string
		softDeleteFn   func(cqrs.SoftDeleteUserCommand) (*models.User, error)
		expectedStatus int
	}{
		{
			name: "known subject soft-deleted",
			softDeleteFn: func(cmd cqrs.SoftDeleteUserCommand) (*models.User, error) {
				deleted := *userTestUser
				deleted.Deleted = true
				return &deleted, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown subject",
			softDeleteFn: func(cmd cqrs.SoftDeleteUserCommand) (*models.User, error) {
				return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockUserCommander{softDeleteFn: tt.softDeleteFn}
			body := map[string]interface{}{
				"type":   "user.deleted",
				"object": "event",
				"data":   map[string]interface{}{"id": "subj-001", "deleted": true},
			}
			w := userDoRequest(newUserTestRouter(cmds), body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK && !strings.Contains(w.Body.String(), `"deleted":true`) {
				t.Errorf("expected deleted flag in body: %s", w.Body.String())
			}
		})
	}
}

func TestHandleLifecycleEventConflict(t *testing.T) {
	cmds := &mockUserCommander{
		reconcileFn: func(cmd cqrs.ReconcileUserCommand) (*models.User, error) {
			return nil, fmt.Errorf("user: %w", repository.ErrConflict)
		},
	}
	w := userDoRequest(newUserTestRouter(cmds), lifecyclePayload("user.created"))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 got %d; body: %s", w.Code, w.Body.String())
	}
}

func TestHandleLifecycleEventIgnoresUnknownKinds(t *testing.T) {
	// The upstream taxonomy can grow, and payload shapes of kinds this
	// service never handles are unconstrained. They must all be acknowledged.
	tests := []struct {
		name string
		body interface{}
	}{
		{
			name: "user-shaped data",
			body: map[string]interface{}{
				"type":   "session.created",
				"object": "event",
				"data":   map[string]interface{}{"id": "sess-1"},
			},
		},
		{
			name: "foreign-shaped data reusing a field name with another type",
			body: map[string]interface{}{
				"type":   "organizationMembership.created",
				"object": "event",
				"data":   map[string]interface{}{"id": "orgmem_1", "first_name": 123},
			},
		},
		{
			name: "array data",
			body: map[string]interface{}{
				"type": "email.created",
				"data": []interface{}{"to@example.com"},
			},
		},
		{
			name: "no data at all",
			body: map[string]interface{}{"type": "session.removed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := userDoRequest(newUserTestRouter(&mockUserCommander{}), tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("[%s] expected 200 got %d; body: %s", tt.name, w.Code, w.Body.String())
			}

			var resp IgnoredEventResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			eventType := tt.body.(map[string]interface{})["type"].(string)
			if resp.Status != "ignored" || resp.Event != eventType {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestHandleLifecycleEventRejectsMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing type", body: map[string]interface{}{"object": "event", "data": map[string]interface{}{"id": "x"}}},
		{name: "created without subject id", body: map[string]interface{}{"type": "user.created", "data": map[string]interface{}{}}},
		{name: "created with type-mismatched data", body: map[string]interface{}{"type": "user.created", "data": map[string]interface{}{"id": "x", "first_name": 123}}},
		{name: "deleted without subject id", body: map[string]interface{}{"type": "user.deleted", "data": map[string]interface{}{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := userDoRequest(newUserTestRouter(&mockUserCommander{}), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("[%s] expected 400 got %d; body: %s", tt.name, w.Code, w.Body.String())
			}
		})
	}
}
