package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/usecases"
)

type memStore struct {
	mu    sync.Mutex
	convs map[string]*entities.Conversation
	next  int
}

func newMemStore() *memStore {
	return &memStore{convs: map[string]*entities.Conversation{}, next: 1}
}

func (s *memStore) AppendCustomerMessage(_ context.Context, customerID, customerName, platformName string, msg entities.Message) (*entities.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := customerID + "|" + platformName
	if c, ok := s.convs[key]; ok {
		c.Messages = append(c.Messages, msg)
		c.MessageCount = len(c.Messages)
		return c, false, nil
	}
	c := &entities.Conversation{
		ID: s.next, CustomerID: customerID, CustomerName: customerName,
		Platform: platformName, Status: entities.StatusActive,
		Messages: []entities.Message{msg}, MessageCount: 1,
	}
	s.next++
	s.convs[key] = c
	return c, true, nil
}

func (s *memStore) AppendReply(context.Context, int, entities.Message) (*entities.Conversation, error) {
	return nil, nil
}
func (s *memStore) GetByID(context.Context, int) (*entities.Conversation, error) { return nil, nil }
func (s *memStore) UpdateStatus(context.Context, int, string) (*entities.Conversation, error) {
	return nil, nil
}
func (s *memStore) Assign(context.Context, int, int) (*entities.Conversation, error) {
	return nil, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

func webTestRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := usecases.NewMessageService(store, nil, nil, nil, nil, nil, nil)
	h := NewHandler(svc, nil, nil, nil, nil, nil)

	r := gin.New()
	r.POST("/webhook/web", h.HandleWebMessage)
	return r
}

func TestHandleWebMessage_AcceptsAndStores(t *testing.T) {
	store := newMemStore()
	r := webTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/web",
		strings.NewReader(`{"customer_id":"visitor-1","name":"Anon","content":"Hello"}`))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Accepted int `json:"accepted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.Accepted)

	// Processing is asynchronous; poll briefly for the write.
	deadline := time.Now().Add(time.Second)
	for store.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, store.count())
}

func TestHandleWebMessage_RejectsMissingFields(t *testing.T) {
	store := newMemStore()
	r := webTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/web", strings.NewReader(`{"name":"Anon"}`))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, 0, store.count())
}

func webhookTestRouter(store *memStore, credentials *stubCredentialStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := usecases.NewMessageService(store, nil, nil, nil, nil, nil, nil)
	h := NewHandler(svc, nil, nil, credentials, nil, nil)

	r := gin.New()
	r.POST("/webhook/facebook", h.HandleFacebookWebhook)
	r.POST("/webhook/line", h.HandleLineWebhook)
	r.POST("/webhook/telegram", h.HandleTelegramWebhook)
	return r
}

const graphBody = `{"object":"page","entry":[{"messaging":[{"sender":{"id":"psid-1"},"message":{"mid":"m1","text":"hi"}}]}]}`

func TestHandleFacebookWebhook_RejectsBadSignature(t *testing.T) {
	credentials := &stubCredentialStore{cred: &entities.Credential{
		ID: 1, Platform: entities.PlatformFacebook, ChannelSecret: "app-secret", Active: true,
	}}
	store := newMemStore()
	r := webhookTestRouter(store, credentials)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook", strings.NewReader(graphBody))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, store.count())
}

func TestHandleFacebookWebhook_AcksValidSignature(t *testing.T) {
	credentials := &stubCredentialStore{cred: &entities.Credential{
		ID: 1, Platform: entities.PlatformFacebook, ChannelSecret: "app-secret", Active: true,
	}}
	store := newMemStore()
	r := webhookTestRouter(store, credentials)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte(graphBody))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook", strings.NewReader(graphBody))
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	deadline := time.Now().Add(time.Second)
	for store.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, store.count())
}

func TestHandleLineWebhook_RejectsBadSignature(t *testing.T) {
	credentials := &stubCredentialStore{cred: &entities.Credential{
		ID: 1, Platform: entities.PlatformLine, ChannelSecret: "channel-secret", Active: true,
	}}
	store := newMemStore()
	r := webhookTestRouter(store, credentials)

	body := `{"events":[{"type":"message","source":{"type":"user","userId":"U1"},"message":{"id":"m1","type":"text","text":"hi"}}]}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/line", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", base64.StdEncoding.EncodeToString([]byte("forged")))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, store.count())
}

func TestHandleTelegramWebhook_RejectsBadSecretToken(t *testing.T) {
	credentials := &stubCredentialStore{cred: &entities.Credential{
		ID: 1, Platform: entities.PlatformTelegram, ChannelSecret: "hook-secret", Active: true,
	}}
	store := newMemStore()
	r := webhookTestRouter(store, credentials)

	body := `{"update_id":1,"message":{"message_id":1,"date":1700000000,"text":"hi","chat":{"id":5,"type":"private"}}}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "hook-secret")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleWebMessage_RejectsMalformedJSON(t *testing.T) {
	r := webTestRouter(newMemStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/web", strings.NewReader(`{broken`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
