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

	"github.com/joho/godotenv"

	"github.com/avatarlabs/chatbot-backend/internal/config"
	"github.com/avatarlabs/chatbot-backend/internal/generator"
	"github.com/avatarlabs/chatbot-backend/internal/handler"
	"github.com/avatarlabs/chatbot-backend/internal/retrieval"
	chatservice "github.com/avatarlabs/chatbot-backend/internal/service/chat"
	"github.com/avatarlabs/chatbot-backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	turnStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open turn store: %v", err)
	}
	defer turnStore.Close()

	provider := retrieval.NewProvider(cfg.Retrieval)
	log.Printf("retrieval provider: %s", provider.Name())

	// The generator is optional at startup; without credentials the
	// service still serves history and health, and chat requests fail
	// upstream-classified.
	var gen generator.Generator
	if cfg.AI.Enabled() {
		arkGen, err := generator.NewArkGenerator(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize answer generator: %v", err)
			log.Println("continuing without generation - check the Ark model environment variables")
		} else {
			gen = arkGen
			log.Println("answer generator initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping generator initialization")
	}

	chatSvc := chatservice.NewService(cfg.Chat, cfg.Retrieval, turnStore, provider, gen)
	router := handler.NewRouter(chatSvc, cfg.Server.CORSOrigins)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chatbot backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
