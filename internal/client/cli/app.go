// Package cli implements the interactive authctl shell.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	db          *sql.DB
	logger      logging.Logger
	reader      *bufio.Reader
	out         io.Writer

	mu    sync.Mutex
	mode  Mode
	email string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := filex.EnsureParentDir(c.SessionDB); err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.New(c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, session.NewSQLiteRepository(db))
	logger := logging.NewTextLogger(os.Stderr, "info").With("module", "authctl")

	return newApp(c, as, db, logger, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, as services.AuthService, db *sql.DB, l logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{config: c, authService: as, db: db, logger: l, reader: bufio.NewReader(in), out: out}
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "Switched mode", "mode", string(mode))
	}
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.email != ""
}

func (a *App) setEmail(email string) {
	a.mu.Lock()
	a.email = email
	a.mu.Unlock()
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.email
	if a.mode != "" {
		if s != "" {
			s += " "
		}
		s += string(a.mode)
	}
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}

// Run restores any stored session, starts the reachability watcher and
// serves the REPL until the user leaves or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		_ = a.authService.Close(ctx)
		_ = a.db.Close()
	}()

	if email, err := a.authService.CurrentEmail(ctx); err != nil {
		a.logger.Warn(ctx, "cannot read stored session", "error", err)
	} else {
		a.setEmail(email)
	}

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	fmt.Fprintln(a.out, "Welcome to authctl (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(pctx); err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher pings the server every interval until ctx ends.
// A non-positive interval disables it.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
