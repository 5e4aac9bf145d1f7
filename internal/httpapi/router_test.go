package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chattrix/chattrix/internal/ai"
	"github.com/chattrix/chattrix/internal/chat"
	"github.com/chattrix/chattrix/internal/config"
	"github.com/chattrix/chattrix/internal/kv"
	"github.com/chattrix/chattrix/internal/share"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeProvider struct {
	reply string
	err   error
}

func (p *fakeProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	_ = messages
	return p.reply, p.err
}

func newTestRouter(t *testing.T, provider ai.Provider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return provider, nil
	})

	kvStore := kv.NewMemoryStore()
	store := chat.NewStore(kvStore, nil)
	svc := chat.NewService(store, reg, "fake", "", time.Second, nil, nil)
	shareSvc := share.NewService(kvStore, nil)

	return NewRouter(config.Config{MaxSessions: 50}, svc, shareSvc, nil, nil)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestPing(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{reply: "ok"})

	w := doJSON(t, r, http.MethodGet, "/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "ok", env.Message)
}

func TestSessionLifecycle(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{reply: "ok"})

	// create
	w := doJSON(t, r, http.MethodPost, "/sessions", gin.H{"title": "api test"})
	require.Equal(t, http.StatusOK, w.Code)
	var created chat.Session
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &created))
	assert.Equal(t, "api test", created.Title)
	require.NotEmpty(t, created.ID)

	// fetch
	w = doJSON(t, r, http.MethodGet, "/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// rename
	w = doJSON(t, r, http.MethodPatch, "/sessions/"+created.ID, gin.H{"title": "renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	var renamed chat.Session
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &renamed))
	assert.Equal(t, "renamed", renamed.Title)

	// creating made it current
	w = doJSON(t, r, http.MethodGet, "/current-session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current chat.Session
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &current))
	assert.Equal(t, created.ID, current.ID)

	// delete, then 404 on fetch
	w = doJSON(t, r, http.MethodDelete, "/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40401, decodeEnvelope(t, w).Code)
}

func TestAskEndpoint(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{reply: "* bullet one\n* bullet two"})

	w := doJSON(t, r, http.MethodPost, "/ask", gin.H{"prompt": "give me bullets"})
	require.Equal(t, http.StatusOK, w.Code)

	var answer chat.Answer
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &answer))
	assert.False(t, answer.Failed)
	assert.Len(t, answer.Blocks, 2)
	assert.Equal(t, chat.BlockBullet, answer.Blocks[0].Kind)
}

func TestAskEndpoint_ProviderFailure(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{err: fmt.Errorf("boom: %w", ai.ErrAPI)})

	w := doJSON(t, r, http.MethodPost, "/ask", gin.H{"prompt": "anything"})
	require.Equal(t, http.StatusOK, w.Code, "provider failures surface on the answer, not as http errors")

	var answer chat.Answer
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &answer))
	assert.True(t, answer.Failed)
	assert.Equal(t, chat.FailureAPI, answer.FailureKind)
}

func TestExportDownload(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{reply: "fine"})

	w := doJSON(t, r, http.MethodPost, "/sessions", gin.H{"title": "export me"})
	var sess chat.Session
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &sess))

	w = doJSON(t, r, http.MethodPost, "/sessions/"+sess.ID+"/messages", gin.H{
		"role": "user", "content": "hello",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/sessions/"+sess.ID+"/export?format=txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "CHAT EXPORT")

	w = doJSON(t, r, http.MethodGet, "/sessions/"+sess.ID+"/export?format=docx", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40002, decodeEnvelope(t, w).Code)
}

func TestShareFlow(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{reply: "fine"})

	w := doJSON(t, r, http.MethodPost, "/sessions", gin.H{"title": "to share"})
	var sess chat.Session
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &sess))

	w = doJSON(t, r, http.MethodPost, "/shares", gin.H{
		"session_id": sess.ID,
		"options":    gin.H{"expiresInDays": 7, "password": "pw"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "passwordHash")
	var rec share.View
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &rec))
	assert.True(t, rec.HasPassword)

	// no password header
	w = doJSON(t, r, http.MethodGet, "/shares/"+rec.ID, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40102, decodeEnvelope(t, w).Code)

	// correct password via header
	req := httptest.NewRequest(http.MethodGet, "/shares/"+rec.ID, nil)
	req.Header.Set("X-Share-Password", "pw")
	got := httptest.NewRecorder()
	r.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var res share.Resolution
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, got).Data, &res))
	assert.Equal(t, "to share", res.Session.Title)
	assert.Equal(t, 1, res.Info.AccessCount)

	// unknown share id
	w = doJSON(t, r, http.MethodGet, "/shares/share_missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40404, decodeEnvelope(t, w).Code)
}

func TestJobsEndpointWithoutQueue(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{reply: "fine"})

	w := doJSON(t, r, http.MethodPost, "/jobs", gin.H{"prompt": "queue me"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 50301, decodeEnvelope(t, w).Code)
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{reply: "fine"})

	w := doJSON(t, r, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, decodeEnvelope(t, w).Code)
}
