package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	config "github.com/avvvet/kidzone-services/configs"
	"github.com/avvvet/kidzone-services/internal/analyticsvc/broker"
	svcconfig "github.com/avvvet/kidzone-services/internal/analyticsvc/config"
	"github.com/avvvet/kidzone-services/internal/analyticsvc/handlers"
	"github.com/avvvet/kidzone-services/internal/analyticsvc/store"
	"github.com/avvvet/kidzone-services/internal/db"
	natscli "github.com/avvvet/kidzone-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "analytics"

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

	mdb, err := db.ConnectToDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mdb.Client().Disconnect(context.Background())
	log.Printf("mongo connection established successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.CreateTTLIndexForCollection(ctx, mdb, store.EventsCollection)
	cancel()
	if err != nil {
		log.Fatalf("Failed to create TTL index: %v", err)
	}

	eventStore := store.NewEventStore(mdb)

	// Connect to NATS
	n, err := natscli.Connect(cfg.NatsUrl, cfg.NatsToken, SERVICE_NAME+"_"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn, eventStore, cfg.Retention)
	sub, err := b.Subscribe()
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	handlers.NewHandler(eventStore).SetRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Drain()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
