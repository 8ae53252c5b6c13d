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

	"github.com/zhouzirui/z-chatbot/backend/internal/config"
	"github.com/zhouzirui/z-chatbot/backend/internal/handler"
	"github.com/zhouzirui/z-chatbot/backend/internal/model/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/model/user"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/auth"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/bot"
	chatService "github.com/zhouzirui/z-chatbot/backend/internal/service/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/delivery"
	"github.com/zhouzirui/z-chatbot/backend/internal/storage/mongo"
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

	messages, users, closeStore, err := openStores(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Storage.Driver, err)
	}
	defer closeStore()

	authSvc, err := auth.NewService(users, cfg.Auth.SigningKey, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize auth service: %v", err)
	}

	script := bot.DefaultScript()
	engine := bot.NewEngine(script, bot.Options{RepromptUnknown: cfg.Bot.RepromptUnknown})
	if cfg.Bot.RepromptUnknown {
		log.Println("bot will re-send the menu for unrecognised input")
	}

	router := delivery.NewRouter()
	chatSvc := chatService.NewService(messages, router, engine)

	httpHandler := handler.NewRouter(handler.Deps{
		Auth:          authSvc,
		Chat:          chatSvc,
		Delivery:      router,
		Script:        script,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		SendBuffer:    cfg.Realtime.SendBuffer,
	})

	startServer(ctx, cfg.Server, httpHandler)
}

func openStores(ctx context.Context, cfg config.StorageConfig) (chat.Store, user.Store, func(), error) {
	if cfg.Driver != config.DriverMongo {
		log.Println("using in-memory message store, history is lost on restart")
		return chat.NewMemoryStore(), user.NewMemoryStore(), func() {}, nil
	}

	db, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(shutdownCtx); err != nil {
			log.Printf("[mongo] disconnect failed: %v", err)
		}
	}

	messages, err := mongo.NewMessageStore(ctx, db)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	users, err := mongo.NewUserStore(ctx, db)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	return messages, users, closeDB, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ChatBot backend listening on %s", addr)
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
