package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serenique/serenique-server/pkg/chat"
	"github.com/serenique/serenique-server/pkg/db"
	"github.com/serenique/serenique-server/pkg/insight"
	"github.com/serenique/serenique-server/pkg/persona"
)

type fakeCompletion struct {
	reply string
	err   error
}

func (f *fakeCompletion) Completions(_ context.Context, _ []openai.ChatCompletionMessageParamUnion, _ string) (openai.ChatCompletionMessage, error) {
	if f.err != nil {
		return openai.ChatCompletionMessage{}, f.err
	}
	return openai.ChatCompletionMessage{Content: f.reply}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeCompletion) {
	t.Helper()
	logger := log.New(io.Discard)

	store, err := db.NewStore(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	completions := &fakeCompletion{reply: "I hear you."}
	cache := chat.NewHistoryCache(logger, store, 5*time.Minute)
	composer := chat.NewComposer(store, cache, 10, 5)
	chatService := chat.NewService(logger, store, cache, composer, completions, "test-model", insight.NewFilter(), nil)
	architect := persona.NewArchitect(logger, nil, "")

	return New(logger, chatService, architect, store, "0", 10, 5), completions
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.setupRouter().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func fullQuizBody(userID string) map[string]any {
	answers := map[string]string{}
	for q := 1; q <= persona.QuizLength; q++ {
		answers[fmt.Sprintf("%d", q)] = "b"
	}
	return map[string]any{"user_id": userID, "answers": answers}
}

func onboard(t *testing.T, srv *Server, userID string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/persona/generate", fullQuizBody(userID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestGeneratePersona(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/persona/generate", fullQuizBody("u1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/persona/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)
	assert.Equal(t, "u1", payload["user_id"])
	require.Contains(t, payload, "personality_profile")
	require.Contains(t, payload, "live_user_state")
}

func TestGeneratePersonaRejectsIncompleteQuiz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/persona/generate", map[string]any{
		"user_id": "u1",
		"answers": map[string]string{"1": "a"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPersonaNotOnboarded(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/persona/ghost", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["hint"], "onboarding quiz")
}

func TestChatRequiresPersona(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{
		"user_id": "ghost", "message": "hello",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatTurnAndHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	onboard(t, srv, "u1")

	rec := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{
		"user_id": "u1", "message": "rough day honestly",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "I hear you.", decode(t, rec)["response"])

	rec = doJSON(t, srv, http.MethodGet, "/api/chat/u1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode(t, rec)["messages"].([]any)
	assert.Len(t, messages, 2)

	rec = doJSON(t, srv, http.MethodDelete, "/api/chat/u1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["deleted"])
}

func TestChatGenerationFailureIsBadGateway(t *testing.T) {
	srv, completions := newTestServer(t)
	onboard(t, srv, "u1")

	completions.err = fmt.Errorf("upstream down")
	rec := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{
		"user_id": "u1", "message": "hello",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateState(t *testing.T) {
	srv, _ := newTestServer(t)
	onboard(t, srv, "u1")

	rec := doJSON(t, srv, http.MethodPost, "/api/persona/u1/state", map[string]any{
		"type": "tool_use", "tool_name": "journal",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	payload := decode(t, rec)
	assert.Equal(t, float64(1), payload["tool_usage_count"])
}

func TestUpdateStateUnknownAction(t *testing.T) {
	srv, _ := newTestServer(t)
	onboard(t, srv, "u1")

	rec := doJSON(t, srv, http.MethodPost, "/api/persona/u1/state", map[string]any{
		"type": "dance_party",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsightsLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	onboard(t, srv, "u1")

	rec := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{
		"user_id": "u1", "message": "my exam tomorrow is terrifying me",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/insights/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	insights := decode(t, rec)["insights"].([]any)
	require.Len(t, insights, 1)
	id := insights[0].(map[string]any)["id"].(string)

	rec = doJSON(t, srv, http.MethodGet, "/api/insights/u1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode(t, rec)["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["stressor"])

	rec = doJSON(t, srv, http.MethodDelete, "/api/insights/u1/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/insights/u1/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheStats(t *testing.T) {
	srv, _ := newTestServer(t)
	onboard(t, srv, "u1")

	rec := doJSON(t, srv, http.MethodGet, "/api/chat/u1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["entries"])
}
