package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/ballot-gate/cliparse"
	"github.com/danielhkuo/ballot-gate/middleware"
	"github.com/danielhkuo/ballot-gate/registry"
	"github.com/danielhkuo/ballot-gate/router"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/store"
	"github.com/danielhkuo/ballot-gate/verify"
	"github.com/danielhkuo/ballot-gate/voting"
)

func main() {
	// A .env file is optional; flags and real env vars win over it.
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Open the backing database
	dbConn, err := store.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := store.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Load persisted state, migrating legacy keys in place.
	st := store.New(dbConn)
	state, err := st.LoadState()
	if err != nil {
		slog.Error("state load failed", "error", err)
		os.Exit(1)
	}
	slog.Info("State loaded", "identities", len(state.Identities), "options", len(state.Options))

	// All services share one mutex over the in-memory state.
	var mu sync.Mutex

	// Finished passkey ceremonies count as platform-credential proof for
	// the gate; the ledger is shared between the two.
	ledger := verify.NewAssertionLedger(0)

	// No capture hardware is attached in the server build; face
	// operations report the capture device as unavailable.
	gate := verify.NewGate(st, state, &mu, verify.Config{
		MatchThreshold:  cfg.FaceMatchThreshold,
		EmbeddingDim:    cfg.EmbeddingDim,
		CaptureAttempts: cfg.CaptureAttempts,
		CaptureInterval: cfg.CaptureInterval,
	}, verify.Capabilities{Platform: ledger})

	reg := registry.New(st, state, &mu, gate)
	svc := voting.New(st, state, &mu, gate)
	sessions := session.New(st, state, &mu, cfg.RememberLogin)
	sessions.Restore()

	// Create router
	mux, err := router.NewRouter(router.Services{
		Registry: reg,
		Gate:     gate,
		Voting:   svc,
		Sessions: sessions,
		Store:    st,
		State:    state,
		Mu:       &mu,
		Ledger:   ledger,
		Config:   cfg,
	})
	if err != nil {
		slog.Error("router setup failed", "error", err)
		os.Exit(1)
	}

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
