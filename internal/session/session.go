// Package session owns the single live database connection.
//
// At most one connection exists at a time. Every operation that touches it
// runs under one exclusive lock, so database round trips from different
// callers never interleave.
//
// Usage:
//
//	m := session.New(log)
//	id, err := m.Connect(ctx, cfg)
//	err = m.Do(ctx, func(ctx context.Context, db database.DB) error {
//	    _, err := db.Exec(ctx, "SELECT 1")
//	    return err
//	})
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/database/mysql"
	"github.com/koustreak/dbpilot/internal/database/postgres"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/koustreak/dbpilot/internal/logger"
	"golang.org/x/sync/semaphore"
)

// Opener establishes a pooled, pinged connection.
type Opener func(ctx context.Context, cfg database.Config) (database.DB, error)

// OpenDriver picks the backend named by cfg.Driver.
func OpenDriver(ctx context.Context, cfg database.Config) (database.DB, error) {
	switch cfg.Driver {
	case database.DriverMySQL:
		d, err := mysql.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		d, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Info describes the active connection.
type Info struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Driver      database.Driver `json:"driver"`
	ConnectedAt time.Time       `json:"connected_at"`
}

type connection struct {
	info Info
	db   database.DB
}

// Manager holds zero or one connection.
type Manager struct {
	lock *semaphore.Weighted
	open Opener
	log  *logger.Logger
	conn *connection
}

// Option configures a Manager.
type Option func(*Manager)

// WithOpener replaces the driver opener. Tests use it to inject fakes.
func WithOpener(o Opener) Option {
	return func(m *Manager) { m.open = o }
}

// New returns a disconnected Manager. A nil log discards output.
func New(log *logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager{
		lock: semaphore.NewWeighted(1),
		open: OpenDriver,
		log:  log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(ctx context.Context) error {
	if err := m.lock.Acquire(ctx, 1); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "waiting for session", err)
	}
	return nil
}

// Connect validates cfg, opens the pool and makes it the live connection.
// It fails with AlreadyConnected while another connection exists.
func (m *Manager) Connect(ctx context.Context, cfg database.Config) (string, error) {
	if err := m.acquire(ctx); err != nil {
		return "", err
	}
	defer m.lock.Release(1)

	if m.conn != nil {
		return "", errs.AlreadyConnected()
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	cfg = cfg.WithDefaults()

	db, err := m.open(ctx, cfg)
	if err != nil {
		m.log.ErrorWith("connect failed", err, map[string]any{
			"driver": string(cfg.Driver),
			"target": cfg.DisplayName(),
		})
		return "", err
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	m.conn = &connection{
		info: Info{
			ID:          id,
			Name:        cfg.DisplayName(),
			Driver:      cfg.Driver,
			ConnectedAt: time.Now().UTC(),
		},
		db: db,
	}

	m.log.InfoWith("connected", map[string]any{
		"id":     id,
		"driver": string(cfg.Driver),
		"target": cfg.DisplayName(),
	})
	return id, nil
}

// Disconnect closes the live connection. It is a no-op without one.
func (m *Manager) Disconnect(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release(1)

	if m.conn == nil {
		return nil
	}
	m.conn.db.Close()
	m.log.With().Str("id", m.conn.info.ID).Logger().Info("disconnected")
	m.conn = nil
	return nil
}

// Status reports the display name of the live connection.
func (m *Manager) Status(ctx context.Context) (string, bool, error) {
	info, ok, err := m.Info(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	return info.Name, true, nil
}

// Info returns the details of the live connection.
func (m *Manager) Info(ctx context.Context) (Info, bool, error) {
	if err := m.acquire(ctx); err != nil {
		return Info{}, false, err
	}
	defer m.lock.Release(1)

	if m.conn == nil {
		return Info{}, false, nil
	}
	return m.conn.info, true, nil
}

// TestConnection opens a separate single-connection probe, pings it and
// closes it. The session is neither read nor changed.
func (m *Manager) TestConnection(ctx context.Context, cfg database.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.WithDefaults()
	cfg.MaxConns = 1
	cfg.MinConns = 0

	db, err := m.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return err
	}
	m.log.With().Str("target", cfg.DisplayName()).Logger().Debug("probe succeeded")
	return nil
}

// Do runs fn with the live connection while holding the session lock.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, db database.DB) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release(1)

	if m.conn == nil {
		return errs.NotConnected()
	}
	return fn(ctx, m.conn.db)
}

// Close disconnects on shutdown.
func (m *Manager) Close() error {
	return m.Disconnect(context.Background())
}
