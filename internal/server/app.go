// Package server wires the authkeeper services to their transports. It opens
// the database, applies migrations, builds the HTTP and gRPC servers and
// runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/shared/db"
	"github.com/dmitrijs2005/authkeeper/internal/server/storage"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

// otpPurgeInterval is how often consumed and expired reset codes are removed.
const otpPurgeInterval = time.Hour

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	issuer   *auth.Issuer
	metrics  *metrics.Prometheus
	sessions *services.SessionService
	resets   *services.PasswordResetService
	avatars  *services.AvatarService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	conn, err := db.Open(ctx, c.DatabaseDSN, db.PoolOptions{
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app, err := newApp(ctx, c, logger, conn, rm)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, conn *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	hasher, err := password.NewHasher(c.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	ml, err := mailer.New(c, logger)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	presigner, err := storage.NewS3Presigner(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	rec := metrics.NewPrometheus()

	return &App{
		config:   c,
		logger:   logger,
		db:       conn,
		issuer:   issuer,
		metrics:  rec,
		sessions: services.NewSessionService(conn, rm, hasher, issuer, logger, rec),
		resets:   services.NewPasswordResetService(conn, rm, hasher, ml, c, logger, rec),
		avatars:  services.NewAvatarService(conn, rm, presigner, logger, rec),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.resets, app.issuer)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.sessions, app.resets, app.avatars, app.issuer,
		app.metrics.Handler(), app.config.RequestTimeout, app.logger)
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, h, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runOTPJanitor periodically deletes reset codes that can no longer be
// redeemed.
func (app *App) runOTPJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.resets.PurgeStaleOTPs(ctx)
			if err != nil {
				app.logger.Warn(ctx, "otp purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "otp purge", "deleted", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runOTPJanitor(ctx, otpPurgeInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
