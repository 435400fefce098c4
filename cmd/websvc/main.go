package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"

	config "github.com/avvvet/kidzone-services/configs"
	natscli "github.com/avvvet/kidzone-services/internal/nats"
	"github.com/avvvet/kidzone-services/internal/websvc/ai"
	"github.com/avvvet/kidzone-services/internal/websvc/broker"
	svcconfig "github.com/avvvet/kidzone-services/internal/websvc/config"
	"github.com/avvvet/kidzone-services/internal/websvc/db"
	"github.com/avvvet/kidzone-services/internal/websvc/handlers"
	"github.com/avvvet/kidzone-services/internal/websvc/kv"
	"github.com/avvvet/kidzone-services/internal/websvc/metrics"
	"github.com/avvvet/kidzone-services/internal/websvc/service"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "web"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// pg connection
	dbpool, err := db.Connect(cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	if err := db.Migrate(context.Background(), dbpool); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// leaderboard backend is optional
	var board *kv.Leaderboard
	if cfg.RedisUrl != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := kv.Connect(ctx, cfg.RedisUrl)
		cancel()
		if err != nil {
			log.Warnf("redis unavailable, leaderboard disabled: %v", err)
		} else {
			defer client.Close()
			board = kv.NewLeaderboard(client, cfg.LeaderboardTTL)
			log.Printf("redis connection established successfully")
		}
	} else {
		log.Warn("REDIS_URL not set, leaderboard disabled")
	}

	// events go to the analytics service when NATS is reachable
	var events service.EventPublisher
	if cfg.NatsUrl != "" {
		n, err := natscli.Connect(cfg.NatsUrl, cfg.NatsToken, SERVICE_NAME+"_"+instanceId)
		if err != nil {
			log.Warnf("NATS unavailable, events will not be published: %v", err)
		} else {
			defer n.Conn.Drain()
			events = broker.NewBroker(n.Conn)
			log.Printf("NATS connection established successfully %s", n.Url)
		}
	}

	var completer ai.Completer
	if o := ai.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel); o != nil {
		completer = o
	} else {
		log.Warn("OPENAI_API_KEY not set, friends and hints use built-in replies")
	}

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)

	userStore := store.NewUserStore(dbpool)
	submissionStore := store.NewSubmissionStore(dbpool)
	sessionStore := store.NewSessionStore(dbpool)
	coinStore := store.NewCoinStore(dbpool)

	scoreService := service.NewScoreService(board)
	tablesService := service.NewTablesService(sessionStore, scoreService)

	m := metrics.New()
	h := handlers.NewHandler(tokenAuth, handlers.Services{
		Users:       service.NewUserService(userStore, tokenAuth),
		Submissions: service.NewSubmissionService(submissionStore, events),
		Tables:      tablesService,
		Scores:      scoreService,
		Coins:       service.NewCoinService(coinStore),
		Catalog:     service.NewCatalogService(submissionStore),
		Friends:     service.NewFriendService(completer),
		Hints:       service.NewHintService(completer, time.Now().UnixNano()),
		Analytics:   service.NewAnalyticsService(events),
	}, m, cfg.CookieSecure, originChecker(cfg.AllowedOrigins))

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(c.Handler)

	r.Handle("/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		// to protect the service api from any over requests
		r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))
		h.SetRoutes(r)
	})

	ctx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweepLoop(ctx, tablesService, cfg.StaleAfter)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancelSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// sweepLoop closes table sessions that were abandoned without an end call.
func sweepLoop(ctx context.Context, tables *service.TablesService, olderThan time.Duration) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tables.SweepStale(ctx, olderThan)
			if err != nil {
				log.Errorf("sweep stale sessions: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("closed %d stale table sessions", n)
			}
		}
	}
}

// originChecker accepts websocket upgrades from the CORS origins. Requests
// without an Origin header come from non-browser clients and are allowed.
func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
