// Package server wires the HTTP and WebSocket surfaces onto one gin engine.
package server

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"scrimbase/backend/internal/audit"
	"scrimbase/backend/internal/channel"
	"scrimbase/backend/internal/events/producer"
	"scrimbase/backend/internal/health"
	identityhandler "scrimbase/backend/internal/identity/handler"
	"scrimbase/backend/internal/identity/service"
	messagerepo "scrimbase/backend/internal/message/repository"
	"scrimbase/backend/internal/realtime"
)

// Deps carries everything the router needs. Optional collaborators (DB,
// Audit, Events, Messages) may be nil; the affected features degrade rather
// than fail.
type Deps struct {
	Sessions      *service.SessionService
	Authenticator *realtime.Authenticator
	Authorizer    *channel.Authorizer
	Hub           *realtime.Hub
	Messages      messagerepo.Repository
	Audit         audit.AuditLogger
	Events        producer.Producer
	DB            *sql.DB
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	var pinger health.Pinger
	if d.DB != nil {
		pinger = d.DB
	}
	r.GET("/healthz", health.Handler(pinger))

	v1 := r.Group("/v1")
	identityhandler.NewAuthHandler(d.Sessions).Register(v1)

	ws := NewWSHandler(d.Authenticator, d.Authorizer, d.Hub, d.Messages, d.Audit, d.Events)
	v1.GET("/ws", ws.Handle)

	return r
}
