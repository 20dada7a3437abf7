// Server runs the HTTP and WebSocket surfaces: auth endpoints, the realtime
// connection endpoint, and /healthz. Requires DATABASE_URL and JWT_SECRET;
// Redis and Kafka are optional and degrade to in-process behavior.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"scrimbase/backend/internal/audit"
	auditrepo "scrimbase/backend/internal/audit/repository"
	"scrimbase/backend/internal/channel"
	channelpolicy "scrimbase/backend/internal/channel/policy"
	"scrimbase/backend/internal/config"
	"scrimbase/backend/internal/db"
	"scrimbase/backend/internal/events/producer"
	"scrimbase/backend/internal/identity/service"
	messagerepo "scrimbase/backend/internal/message/repository"
	orgrepo "scrimbase/backend/internal/organization/repository"
	"scrimbase/backend/internal/realtime"
	"scrimbase/backend/internal/revocation"
	"scrimbase/backend/internal/security"
	"scrimbase/backend/internal/server"
	userrepo "scrimbase/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("server: DATABASE_URL is required")
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	var revoked revocation.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		revoked = revocation.NewRedisStore(client)
		log.Printf("revocation store: redis at %s", cfg.RedisAddr)
	} else {
		revoked = revocation.NewMemoryStore()
		log.Println("revocation store: in-process memory")
	}

	var events producer.Producer
	if kp, err := producer.NewKafkaProducer(cfg.EventsKafkaBrokersList(), cfg.EventsKafkaTopic); err != nil {
		log.Fatalf("kafka: %v", err)
	} else if kp != nil {
		events = kp
		defer kp.Close()
		log.Printf("event pipeline: kafka topic %s", cfg.EventsKafkaTopic)
	}

	users := userrepo.NewPostgresRepository(pool)
	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(pool), nil)
	codec := security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTTL())
	sessions := service.NewSessionService(
		users, codec, revoked, security.NewHasher(cfg.BcryptCost),
		cfg.AccessTTL(), cfg.RefreshTTL(), auditLog,
	)

	sendPolicy := channelpolicy.NewOPAEvaluator(channelpolicy.NewPostgresRepository(pool))
	if err := sendPolicy.HealthCheck(context.Background()); err != nil {
		log.Fatalf("channel policy: %v", err)
	}

	router := server.NewRouter(server.Deps{
		Sessions:      sessions,
		Authenticator: realtime.NewAuthenticator(sessions, users, orgrepo.NewPostgresRepository(pool)),
		Authorizer:    channel.NewAuthorizer(users, sendPolicy),
		Hub:           realtime.NewHub(),
		Messages:      messagerepo.NewPostgresRepository(pool),
		Audit:         auditLog,
		Events:        events,
		DB:            pool,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}
