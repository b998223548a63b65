package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/event-portal/internal/application"
	"github.com/example/event-portal/internal/config"
	httptransport "github.com/example/event-portal/internal/http"
	"github.com/example/event-portal/internal/identity"
	"github.com/example/event-portal/internal/monitoring"
	"github.com/example/event-portal/internal/persistence"
	"github.com/example/event-portal/internal/persistence/localstore"
	"github.com/example/event-portal/internal/persistence/sqlite"
)

// storage is the union of repository capabilities both backends provide.
type storage interface {
	persistence.EventRepository
	persistence.TicketTypeRepository
	persistence.AttendeeRepository
	persistence.AnalyticsRepository
	persistence.CampaignRepository
	persistence.UserRepository
	persistence.SessionRepository
	persistence.SecurityLogRepository
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStorage(cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "backend", cfg.StorageBackend)
		os.Exit(1)
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	ids := identity.NewRandomGenerator()
	now := time.Now

	if err := bootstrapAdmin(context.Background(), store, cfg, ids.NewID, now, logger); err != nil {
		logger.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	eventRepo := newEventRepositoryAdapter(store)
	ticketRepo := newTicketRepositoryAdapter(store)
	attendeeRepo := newAttendeeRepositoryAdapter(store)
	analyticsRepo := newAnalyticsRepositoryAdapter(store)
	campaignRepo := newCampaignRepositoryAdapter(store)
	credentialStore := newCredentialStoreAdapter(store)
	sessionRepo := newSessionRepositoryAdapter(store)
	securityLog := newSecurityLogAdapter(store)

	planPolicy := application.NewFreeTierPlanPolicy(eventRepo, cfg.FreeTierMaxPublished)
	analyticsService := application.NewAnalyticsServiceWithLogger(analyticsRepo, eventRepo, nil, now, logger)
	eventService := application.NewEventServiceWithLogger(eventRepo, planPolicy, analyticsService, ids.NewID, now, logger)
	ticketService := application.NewTicketServiceWithLogger(ticketRepo, eventRepo, ids.NewID, now, logger)
	attendeeService := application.NewAttendeeServiceWithLogger(attendeeRepo, ticketRepo, eventRepo, analyticsService, ids.NewID, now, logger)
	campaignService := application.NewCampaignServiceWithLogger(campaignRepo, eventRepo, ids.NewID, now, logger)
	authService := application.NewAuthServiceWithLogger(credentialStore, sessionRepo, securityLog, nil, ids.NewID, ids.NewToken, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Events:    httptransport.NewEventHandler(eventService, logger),
		Tickets:   httptransport.NewTicketHandler(ticketService, logger),
		Attendees: httptransport.NewAttendeeHandler(attendeeService, logger),
		Analytics: httptransport.NewAnalyticsHandler(analyticsService, logger),
		Campaigns: httptransport.NewCampaignHandler(campaignService, logger),
		Metrics:   monitoring.Handler(),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicRoute(r) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("event portal API listening", "addr", server.Addr, "backend", cfg.StorageBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func openStorage(cfg config.Config, logger *slog.Logger) (storage, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(context.Background()); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.BackendFile:
		kv, err := localstore.NewFileKV(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		store := localstore.New(kv, localstore.Options{
			Latency: cfg.StoreLatency,
			Seed:    cfg.SeedFixtures,
			Logger:  logger,
		})
		return store, func() error { return nil }, nil
	case config.BackendMemory:
		store := localstore.New(localstore.NewMemoryKV(), localstore.Options{
			Latency: cfg.StoreLatency,
			Seed:    cfg.SeedFixtures,
			Logger:  logger,
		})
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// bootstrapAdmin provisions the configured administrator account on first
// start so a fresh deployment can sign in.
func bootstrapAdmin(ctx context.Context, store storage, cfg config.Config, idGenerator func() string, now func() time.Time, logger *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := store.GetUserByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	hash, err := application.DefaultPasswordHasher().Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}

	ts := now().UTC()
	user := persistence.User{
		ID:           idGenerator(),
		Email:        cfg.AdminEmail,
		DisplayName:  "Administrator",
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return err
	}

	logger.Info("bootstrapped admin account", "user_id", user.ID, "email", user.Email)
	return nil
}

// publicRoute reports whether a request may be served without a session.
// Sign-in, metrics scraping, event browsing, and anonymous page-view
// recording stay open; everything else requires authentication.
func publicRoute(r *http.Request) bool {
	path := r.URL.Path

	if path == "/sessions" && r.Method == http.MethodPost {
		return true
	}
	if path == "/metrics" && r.Method == http.MethodGet {
		return true
	}
	if r.Method == http.MethodGet && path == "/events" {
		return true
	}
	if r.Method == http.MethodGet && strings.HasPrefix(path, "/events/") && !strings.Contains(strings.TrimPrefix(path, "/events/"), "/") {
		return true
	}
	if r.Method == http.MethodPost && strings.HasPrefix(path, "/events/") && strings.HasSuffix(path, "/analytics/views") {
		return true
	}
	return false
}
