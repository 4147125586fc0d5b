package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchSendsEmailWhenConfigured(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var requests int32
	bodies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	t.Setenv("SENDGRID_API_KEY", "SG.test-key")
	t.Setenv("SENDGRID_HOST", server.URL)

	svc := NewNotificationService(db, NewEmailService(), nil)
	user := createTestUser(t, db, "reader@example.com", model.RoleStudent)

	svc.Dispatch(ctx, DispatchRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategorySupport,
		Title:    "Support replied",
		Message:  "There is a new reply on ticket TKT-abc123.",
		Email:    true,
	})

	// The in-app notification is persisted regardless of the channel
	var note model.UserNotification
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&note).Error)
	assert.Equal(t, "Support replied", note.Title)

	// Dispatch is synchronous, so the email request has already landed
	require.EqualValues(t, 1, atomic.LoadInt32(&requests))
	body := <-bodies
	assert.Contains(t, body, user.Email)
	assert.Contains(t, body, "Support replied")
}

func TestDispatchSkipsEmailWhenNotRequested(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	t.Setenv("SENDGRID_API_KEY", "SG.test-key")
	t.Setenv("SENDGRID_HOST", server.URL)

	svc := NewNotificationService(db, NewEmailService(), nil)
	user := createTestUser(t, db, "quiet@example.com", model.RoleStudent)

	svc.Dispatch(ctx, DispatchRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategoryGeneral,
		Title:    "Heads up",
		Message:  "In-app only.",
	})

	var count int64
	require.NoError(t, db.Model(&model.UserNotification{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 0, atomic.LoadInt32(&requests))
}
