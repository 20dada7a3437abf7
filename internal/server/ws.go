package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scrimbase/backend/internal/audit"
	"scrimbase/backend/internal/channel"
	"scrimbase/backend/internal/events"
	"scrimbase/backend/internal/events/producer"
	"scrimbase/backend/internal/identity/service"
	messagedomain "scrimbase/backend/internal/message/domain"
	messagerepo "scrimbase/backend/internal/message/repository"
	"scrimbase/backend/internal/realtime"
	"scrimbase/backend/internal/security"
	"scrimbase/backend/internal/tenant"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// Must be shorter than pongWait so pings keep the read deadline alive.
	pingPeriod = 50 * time.Second
	// Outbound buffer per connection; slow consumers drop frames rather than
	// stall the hub.
	sendBuffer = 32
)

// clientFrame is one inbound WebSocket frame.
type clientFrame struct {
	Type        string `json:"type"`
	Channel     string `json:"channel"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

// errorFrame is the server's rejection frame for one failed operation. The
// connection stays open; rejection of an operation is terminal only for that
// operation.
type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// WSHandler authenticates WebSocket connections and runs their frame loops.
type WSHandler struct {
	auth       *realtime.Authenticator
	authorizer *channel.Authorizer
	hub        *realtime.Hub
	messages   messagerepo.Repository
	auditLog   audit.AuditLogger
	events     producer.Producer
	upgrader   websocket.Upgrader
}

// NewWSHandler returns a WSHandler. auditLog and events may be nil.
func NewWSHandler(
	auth *realtime.Authenticator,
	authorizer *channel.Authorizer,
	hub *realtime.Hub,
	messages messagerepo.Repository,
	auditLog audit.AuditLogger,
	events producer.Producer,
) *WSHandler {
	return &WSHandler{
		auth:       auth,
		authorizer: authorizer,
		hub:        hub,
		messages:   messages,
		auditLog:   auditLog,
		events:     events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Handle authenticates and upgrades one connection. The token rides in the
// `token` query parameter; no other transport is accepted. A failed
// authentication rejects the request before the upgrade with no retry on the
// same request.
func (h *WSHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	identity, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.audit(c.Request.Context(), "", "", audit.ActionConnectionRejected, "websocket", err.Error())
		producer.EmitAsync(h.events, events.New("realtime", events.TypeConnectionRejected, "", "", authErrorCode(err)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErrorCode(err)})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	// The tenant scope lives exactly as long as the connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = tenant.WithScope(ctx, tenant.Scope{
		OrgID:  identity.OrgID,
		UserID: identity.UserID,
		Role:   identity.Role,
	})

	conn := newWSConn(ws, identity)
	h.audit(ctx, identity.OrgID, identity.UserID, audit.ActionConnectionOpened, "websocket", "")
	producer.EmitAsync(h.events, events.New("realtime", events.TypeConnectionOpened, identity.OrgID, identity.UserID, ""))

	go conn.writeLoop()
	h.readLoop(ctx, conn)

	for key := range conn.drainSubscriptions() {
		h.hub.Unsubscribe(key, conn)
	}
	conn.close()
}

func (h *WSHandler) readLoop(ctx context.Context, conn *wsConn) {
	conn.ws.SetReadLimit(16 * 1024)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f clientFrame
		if err := conn.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error for user %s: %v", conn.identity.UserID, err)
			}
			return
		}
		switch f.Type {
		case "subscribe":
			h.handleSubscribe(ctx, conn, f)
		case "message":
			h.handleMessage(ctx, conn, f)
		default:
			conn.send(errorFrame{Type: "error", Error: "unknown_frame"})
		}
	}
}

func (h *WSHandler) handleSubscribe(ctx context.Context, conn *wsConn, f clientFrame) {
	sub, ok := subscriptionFromFrame(f)
	if !ok {
		conn.send(errorFrame{Type: "error", Error: "unknown_channel"})
		return
	}
	key, err := h.authorizer.AuthorizeSubscription(ctx, conn.identity, sub)
	if err != nil {
		h.audit(ctx, conn.identity.OrgID, conn.identity.UserID, audit.ActionSubscriptionDenied, f.Channel, err.Error())
		producer.EmitAsync(h.events, events.New("realtime", events.TypeSubscriptionDenied, conn.identity.OrgID, conn.identity.UserID, f.Channel))
		conn.send(errorFrame{Type: "error", Error: channelErrorCode(err)})
		return
	}
	conn.addSubscription(key)
	h.hub.Subscribe(key, conn)
	h.audit(ctx, conn.identity.OrgID, conn.identity.UserID, audit.ActionSubscriptionOpened, key, "")
	producer.EmitAsync(h.events, events.New("realtime", events.TypeSubscriptionOpened, conn.identity.OrgID, conn.identity.UserID, key))
	conn.send(realtime.Envelope{Type: "subscribed", Stream: key, SentAt: time.Now().UTC()})
}

func (h *WSHandler) handleMessage(ctx context.Context, conn *wsConn, f clientFrame) {
	sub, ok := subscriptionFromFrame(f)
	if !ok {
		conn.send(errorFrame{Type: "error", Error: "unknown_channel"})
		return
	}
	// The full channel rules run on every send; a subscription that was valid
	// when opened does not grandfather later sends.
	key, err := h.authorizer.AuthorizeSend(ctx, conn.identity, sub, f.Content)
	if err != nil {
		h.audit(ctx, conn.identity.OrgID, conn.identity.UserID, audit.ActionMessageRejected, f.Channel, err.Error())
		producer.EmitAsync(h.events, events.New("realtime", events.TypeMessageRejected, conn.identity.OrgID, conn.identity.UserID, channelErrorCode(err)))
		conn.send(errorFrame{Type: "error", Error: channelErrorCode(err)})
		return
	}

	now := time.Now().UTC()
	msg := &messagedomain.Message{
		ID:          uuid.NewString(),
		OrgID:       conn.identity.OrgID,
		SenderID:    conn.identity.UserID,
		RecipientID: f.RecipientID,
		Content:     f.Content,
		CreatedAt:   now,
	}
	if h.messages != nil {
		if err := h.messages.Create(ctx, msg); err != nil {
			// Storage trouble surfaces to the sender as a rejected message,
			// never as a dropped connection.
			log.Printf("ws: persist message for org %s: %v", conn.identity.OrgID, err)
			conn.send(errorFrame{Type: "error", Error: "content_rejected"})
			return
		}
	}

	h.hub.Publish(key, realtime.Envelope{
		Type:        "message",
		Stream:      key,
		SenderID:    conn.identity.UserID,
		RecipientID: f.RecipientID,
		Content:     f.Content,
		SentAt:      now,
	})
	producer.EmitAsync(h.events, events.New("realtime", events.TypeMessageSent, conn.identity.OrgID, conn.identity.UserID, key))
}

func (h *WSHandler) audit(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if h.auditLog == nil {
		return
	}
	h.auditLog.LogEvent(ctx, orgID, userID, action, resource, metadata)
}

// subscriptionFromFrame maps the declared channel to its subscription variant.
// The client only ever selects the kind and (for direct) the counterpart; the
// tenant always comes from the verified identity.
func subscriptionFromFrame(f clientFrame) (channel.Subscription, bool) {
	switch f.Channel {
	case "team":
		return channel.TeamSubscription{}, true
	case "direct":
		return channel.DirectSubscription{TargetID: f.RecipientID}, true
	default:
		return nil, false
	}
}

// authErrorCode maps connection authentication failures to a stable code.
func authErrorCode(err error) string {
	switch {
	case errors.Is(err, realtime.ErrNoToken):
		return "no_token"
	case errors.Is(err, security.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, service.ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, security.ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, realtime.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, realtime.ErrNoOrganization):
		return "no_organization"
	default:
		return "internal"
	}
}

// channelErrorCode maps authorizer failures to a stable code.
func channelErrorCode(err error) string {
	switch {
	case errors.Is(err, channel.ErrSubscriptionRejected):
		return "subscription_rejected"
	case errors.Is(err, channel.ErrContentRejected):
		return "content_rejected"
	case errors.Is(err, channel.ErrSendDenied):
		return "send_denied"
	default:
		return "internal"
	}
}

// wsConn is one live connection: a realtime.Subscriber whose Deliver never
// blocks, plus the bookkeeping to unwind its subscriptions on close.
type wsConn struct {
	ws       *websocket.Conn
	identity realtime.Identity

	out  chan any
	done chan struct{}

	mu        sync.Mutex
	subs      map[string]struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, identity realtime.Identity) *wsConn {
	return &wsConn{
		ws:       ws,
		identity: identity,
		out:      make(chan any, sendBuffer),
		done:     make(chan struct{}),
		subs:     make(map[string]struct{}),
	}
}

// Deliver implements realtime.Subscriber. A full buffer drops the envelope.
func (c *wsConn) Deliver(e realtime.Envelope) {
	c.send(e)
}

func (c *wsConn) send(frame any) {
	select {
	case c.out <- frame:
	case <-c.done:
	default:
		log.Printf("ws: dropping frame for slow consumer %s", c.identity.UserID)
	}
}

func (c *wsConn) addSubscription(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[key] = struct{}{}
}

// drainSubscriptions returns and clears the connection's stream bindings.
func (c *wsConn) drainSubscriptions() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.subs
	c.subs = make(map[string]struct{})
	return subs
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case frame := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
