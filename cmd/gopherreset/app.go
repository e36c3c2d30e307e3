package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/gopherreset/internal/db"
	"github.com/nkiryanov/gopherreset/internal/handlers"
	"github.com/nkiryanov/gopherreset/internal/logger"
	"github.com/nkiryanov/gopherreset/internal/repository/postgres"
	"github.com/nkiryanov/gopherreset/internal/service/auth"
	"github.com/nkiryanov/gopherreset/internal/service/frontlink"
	"github.com/nkiryanov/gopherreset/internal/service/mailer"
	"github.com/nkiryanov/gopherreset/internal/service/password"
	"github.com/nkiryanov/gopherreset/internal/service/reset"
	"github.com/nkiryanov/gopherreset/internal/service/tokens"
	"github.com/nkiryanov/gopherreset/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger

	// Release resources (db pool) after server stopped
	Close func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	resetTTL, err := tokens.ParseTTL(c.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid reset token ttl. Err: %w", err)
	}
	authTTL, err := tokens.ParseTTL(c.AuthTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth token ttl. Err: %w", err)
	}

	links, err := frontlink.New(c.FrontURL)
	if err != nil {
		return nil, err
	}

	sender, err := newSender(c, l)
	if err != nil {
		return nil, err
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := tokens.New(tokens.Config{}, storage.User(), l.WithGroup("tokens"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(password.DefaultHasher, storage.User())
	authService, err := auth.NewService(auth.Config{TokenTTL: authTTL}, tokenManager, userService)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	resetService, err := reset.NewService(
		reset.Config{From: c.MailFrom, TokenTTL: resetTTL},
		storage,
		tokenManager,
		links,
		sender,
		l.WithGroup("reset"),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating reset service. Err: %w", err)
	}

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(authService, resetService, l),
		Logger:     l,
		Close:      pool.Close,
	}, nil
}

// Send emails with smtp if it configured, log them otherwise
func newSender(c *Config, l logger.Logger) (mailer.Sender, error) {
	if c.SMTPHost == "" {
		l.Warn("smtp host is not set, emails will be logged only")
		return mailer.NewLogSender(l.WithGroup("mailer")), nil
	}

	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,

		RequireTLS: c.SMTPRequireTLS,
	}, l.WithGroup("mailer"))
	if err != nil {
		return nil, fmt.Errorf("error while creating smtp sender. Err: %w", err)
	}

	return sender, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if s.Close != nil {
		s.Close()
	}

	return err
}
