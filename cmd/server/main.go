package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/inkbook/inkbook/internal/asset"
	"github.com/inkbook/inkbook/internal/auth"
	"github.com/inkbook/inkbook/internal/collab"
	"github.com/inkbook/inkbook/internal/config"
	"github.com/inkbook/inkbook/internal/db"
	"github.com/inkbook/inkbook/internal/discovery"
	"github.com/inkbook/inkbook/internal/flip"
	"github.com/inkbook/inkbook/internal/library"
	mw "github.com/inkbook/inkbook/internal/middleware"
	"github.com/inkbook/inkbook/internal/notebook"
	"github.com/inkbook/inkbook/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts, err := notebookOptions(cfg)
	if err != nil {
		return err
	}

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	libraryService := library.NewService(st, cfg.PageCount)
	libraryHandler := library.NewHandler(libraryService)

	stickers := asset.NewHandler(cfg.StickerDir)

	hub := collab.NewHub(collab.HubConfig{
		Load:        libraryService.Pages,
		Save:        libraryService.SavePages,
		Notebook:    opts,
		AssetExists: stickers.Exists,
	})
	libraryService.SetLiveCheck(hub.IsOpen)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Sticker images are public once uploaded; uploading needs a session.
	r.Handle("/stickers/upload", authService.AuthMiddleware(http.HandlerFunc(stickers.Upload))).Methods("POST", "OPTIONS")
	r.PathPrefix("/stickers/").Handler(stickers.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	libraryHandler.Routes(api)

	r.HandleFunc("/ws/notebook/{notebookId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, libraryService, cfg.OriginPatterns())
	})

	// Preflight for routes registered without OPTIONS; CORS answers it.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "addr", addr, "historyMode", opts.HistoryMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.MDNSEnabled {
		g.Go(func() error {
			return discovery.Advertise(gctx, cfg.MDNSInstance, cfg.Port)
		})
	}
	return g.Wait()
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// an in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, notebooks are kept in memory only")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return store.NewPostgres(pool), pool.Close, nil
}

func notebookOptions(cfg *config.Config) (notebook.Options, error) {
	mode, err := notebook.ParseHistoryMode(cfg.HistoryMode)
	if err != nil {
		return notebook.Options{}, err
	}
	opts := notebook.DefaultOptions()
	opts.HistoryMode = mode
	opts.MaxSnapshots = cfg.MaxSnapshots
	opts.BaseOffset = cfg.LayoutBaseOffset
	opts.Flip.CompleteDuration = cfg.FlipCompleteDuration
	opts.Flip.CancelDuration = cfg.FlipCancelDuration
	opts.Thresholds = flip.Thresholds{
		Velocity: cfg.FlipVelocityThreshold,
		Progress: cfg.FlipProgressThreshold,
	}
	return opts, nil
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, lib *library.Service, origins []string) {
	notebookID := mux.Vars(r)["notebookId"]

	// Browsers cannot set headers on the upgrade request.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if err := lib.CanOpen(r.Context(), notebookID, userID); err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound):
			http.Error(w, "notebook not found", http.StatusNotFound)
		case errors.Is(err, library.ErrForbidden):
			http.Error(w, "not your notebook", http.StatusForbidden)
		default:
			slog.Error("open notebook check", "error", err, "notebook", notebookID)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	user, err := authSvc.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, userID, user.DisplayName, notebookID, uuid.NewString())
	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
