package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionStore struct {
	mu   sync.Mutex
	err  error
	sets map[string]string
}

func (s *fakeSessionStore) SetUserGateway(_ context.Context, userID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.sets == nil {
		s.sets = make(map[string]string)
	}
	s.sets[userID] = nodeID
	return nil
}

func (h *Hub) hasClient(userID string) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func dialWs(t *testing.T, srv *httptest.Server, userID string) (*websocket.Conn, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

func newWsTestServer(store sessionStore) (*Hub, *httptest.Server) {
	hub := newHub()
	go hub.run()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, store, w, r)
	}))
	return hub, srv
}

func TestServeWsRegistersClientAndSession(t *testing.T) {
	store := &fakeSessionStore{}
	hub, srv := newWsTestServer(store)
	defer srv.Close()

	conn, err := dialWs(t, srv, "merchant-1")
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.hasClient("merchant-1") }, time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, nodeID, store.sets["merchant-1"])
}

func TestServeWsSessionFailureLeavesNoDeadClient(t *testing.T) {
	store := &fakeSessionStore{err: assert.AnError}
	hub, srv := newWsTestServer(store)
	defer srv.Close()

	conn, err := dialWs(t, srv, "merchant-1")
	if err == nil {
		defer conn.Close()
	}

	// 会话写失败的连接不得进入 Hub，否则广播会往一个永远没人读的
	// 缓冲里写，直到该商家重连都收不到通知
	assert.Never(t, func() bool { return hub.hasClient("merchant-1") }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestServeWsRequiresUserID(t *testing.T) {
	store := &fakeSessionStore{}
	_, srv := newWsTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
