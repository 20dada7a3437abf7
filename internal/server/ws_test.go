package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"scrimbase/backend/internal/channel"
	"scrimbase/backend/internal/identity/service"
	messagedomain "scrimbase/backend/internal/message/domain"
	"scrimbase/backend/internal/realtime"
	"scrimbase/backend/internal/revocation"
	"scrimbase/backend/internal/security"
	"scrimbase/backend/internal/tenant"
	userdomain "scrimbase/backend/internal/user/domain"
)

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*userdomain.User
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) put(u *userdomain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []*messagedomain.Message
	fail     bool
}

func (r *memMessageRepo) Create(ctx context.Context, m *messagedomain.Message) error {
	// Same tenant guard as the postgres repository.
	scope, err := tenant.RequireScope(ctx)
	if err != nil {
		return err
	}
	if scope.OrgID != m.OrgID {
		return errors.New("tenant scope mismatch")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("storage down")
	}
	r.messages = append(r.messages, m)
	return nil
}

func (r *memMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *memMessageRepo) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

type testStack struct {
	srv      *httptest.Server
	sessions *service.SessionService
	users    *memUserRepo
	messages *memMessageRepo
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &memUserRepo{byID: make(map[string]*userdomain.User)}
	messages := &memMessageRepo{}
	sessions := service.NewSessionService(
		users, security.NewTestCodec(), revocation.NewMemoryStore(),
		security.NewHasher(4), 15*time.Minute, 24*time.Hour, nil,
	)
	router := NewRouter(Deps{
		Sessions:      sessions,
		Authenticator: realtime.NewAuthenticator(sessions, users, nil),
		Authorizer:    channel.NewAuthorizer(users, nil),
		Hub:           realtime.NewHub(),
		Messages:      messages,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testStack{srv: srv, sessions: sessions, users: users, messages: messages}
}

func (s *testStack) addUser(t *testing.T, id, orgID string) string {
	t.Helper()
	u := &userdomain.User{
		ID:     id,
		Email:  id + "@example.com",
		OrgID:  orgID,
		Role:   userdomain.RolePlayer,
		Status: userdomain.UserStatusActive,
	}
	s.users.put(u)
	pair, err := s.sessions.IssueTokenPair(u)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}
	return pair.AccessToken
}

func (s *testStack) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(token), nil)
	if err != nil {
		t.Fatalf("dial: %v (resp %v)", err, resp)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *testStack) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/v1/ws"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

type serverFrame struct {
	Type     string `json:"type"`
	Stream   string `json:"stream"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	Error    string `json:"error"`
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f serverFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var f serverFrame
	if err := conn.ReadJSON(&f); err == nil {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func subscribe(t *testing.T, conn *websocket.Conn, channelKind, recipientID string) string {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"type": "subscribe", "channel": channelKind, "recipient_id": recipientID}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	f := readFrame(t, conn)
	if f.Type != "subscribed" {
		t.Fatalf("subscribe ack = %+v", f)
	}
	return f.Stream
}

func sendMessage(t *testing.T, conn *websocket.Conn, channelKind, recipientID, content string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{
		"type": "message", "channel": channelKind, "recipient_id": recipientID, "content": content,
	}); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

func TestWS_RejectsMissingToken(t *testing.T) {
	s := newTestStack(t)
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(""), nil)
	if err == nil {
		t.Fatal("dial succeeded without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp = %+v", resp)
	}
	resp.Body.Close()
}

func TestWS_RejectsRevokedToken(t *testing.T) {
	s := newTestStack(t)
	token := s.addUser(t, "u1", "o1")
	if err := s.sessions.RevokeToken(context.Background(), token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(token), nil)
	if err == nil {
		t.Fatal("dial succeeded with a revoked token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp = %+v", resp)
	}
	resp.Body.Close()
}

func TestWS_TeamChat(t *testing.T) {
	s := newTestStack(t)
	alice := s.dial(t, s.addUser(t, "alice", "o1"))
	bob := s.dial(t, s.addUser(t, "bob", "o1"))
	outsider := s.dial(t, s.addUser(t, "eve", "o2"))

	if key := subscribe(t, alice, "team", ""); key != "team:o1" {
		t.Fatalf("stream = %q", key)
	}
	subscribe(t, bob, "team", "")
	subscribe(t, outsider, "team", "") // lands on team:o2

	sendMessage(t, alice, "team", "", "scrim at 6")

	for _, conn := range []*websocket.Conn{alice, bob} {
		f := readFrame(t, conn)
		if f.Type != "message" || f.SenderID != "alice" || f.Content != "scrim at 6" {
			t.Errorf("frame = %+v", f)
		}
	}
	// The other org's team stream never sees it.
	expectNoFrame(t, outsider)

	if n := s.messages.count(); n != 1 {
		t.Errorf("persisted messages = %d, want 1", n)
	}
}

func TestWS_DirectChat(t *testing.T) {
	s := newTestStack(t)
	alice := s.dial(t, s.addUser(t, "alice", "o1"))
	bob := s.dial(t, s.addUser(t, "bob", "o1"))
	carol := s.dial(t, s.addUser(t, "carol", "o1"))

	keyFromAlice := subscribe(t, alice, "direct", "bob")
	keyFromBob := subscribe(t, bob, "direct", "alice")
	if keyFromAlice != keyFromBob {
		t.Fatalf("direct keys differ: %q vs %q", keyFromAlice, keyFromBob)
	}
	subscribe(t, carol, "team", "")

	sendMessage(t, alice, "direct", "bob", "ready?")

	f := readFrame(t, bob)
	if f.Type != "message" || f.SenderID != "alice" || f.Content != "ready?" {
		t.Errorf("bob frame = %+v", f)
	}
	// Direct traffic stays off the team stream.
	expectNoFrame(t, carol)
}

func TestWS_DirectCrossOrgSubscribeRejected(t *testing.T) {
	s := newTestStack(t)
	s.addUser(t, "outsider", "o2")
	alice := s.dial(t, s.addUser(t, "alice", "o1"))

	if err := alice.WriteJSON(map[string]string{"type": "subscribe", "channel": "direct", "recipient_id": "outsider"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, alice)
	if f.Type != "error" || f.Error != "subscription_rejected" {
		t.Fatalf("frame = %+v", f)
	}
}

func TestWS_ContentRejectedKeepsConnection(t *testing.T) {
	s := newTestStack(t)
	alice := s.dial(t, s.addUser(t, "alice", "o1"))
	subscribe(t, alice, "team", "")

	sendMessage(t, alice, "team", "", "   ")
	f := readFrame(t, alice)
	if f.Type != "error" || f.Error != "content_rejected" {
		t.Fatalf("frame = %+v", f)
	}

	// The connection and subscription survive the rejection.
	sendMessage(t, alice, "team", "", "still here")
	f = readFrame(t, alice)
	if f.Type != "message" || f.Content != "still here" {
		t.Fatalf("frame after rejection = %+v", f)
	}
}

func TestWS_StorageFailureSurfacesAsRejection(t *testing.T) {
	s := newTestStack(t)
	alice := s.dial(t, s.addUser(t, "alice", "o1"))
	subscribe(t, alice, "team", "")

	s.messages.setFail(true)
	sendMessage(t, alice, "team", "", "lost")
	f := readFrame(t, alice)
	if f.Type != "error" || f.Error != "content_rejected" {
		t.Fatalf("frame = %+v", f)
	}

	s.messages.setFail(false)
	sendMessage(t, alice, "team", "", "recovered")
	f = readFrame(t, alice)
	if f.Type != "message" || f.Content != "recovered" {
		t.Fatalf("frame after recovery = %+v", f)
	}
}

func TestWS_UnknownFrameType(t *testing.T) {
	s := newTestStack(t)
	alice := s.dial(t, s.addUser(t, "alice", "o1"))

	if err := alice.WriteJSON(map[string]string{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, alice)
	if f.Type != "error" || f.Error != "unknown_frame" {
		t.Fatalf("frame = %+v", f)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestStack(t)
	resp, err := http.Get(s.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
