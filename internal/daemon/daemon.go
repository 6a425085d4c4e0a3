package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pawbank/allowance/internal/api"
	"github.com/pawbank/allowance/internal/app/dashboard"
	"github.com/pawbank/allowance/internal/domain"
	"github.com/pawbank/allowance/internal/infra/memkv"
	"github.com/pawbank/allowance/internal/infra/sqlite"
)

// Daemon owns the store, the dashboard service and the HTTP server.
type Daemon struct {
	Config  Config
	Service *dashboard.Service

	log *zap.Logger
	db  *sqlite.DB   // nil with the memory driver
	mem *memkv.Store // nil with the sqlite driver
}

// New opens the configured store and builds the service.
func New(cfg Config, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dcfg, err := cfg.Dashboard()
	if err != nil {
		return nil, err
	}

	d := &Daemon{Config: cfg, log: logger}
	var store domain.KeyValueStore
	switch cfg.Store.Driver {
	case DriverMemory:
		d.mem = memkv.New()
		store = d.mem
		logger.Info("using in-memory store, nothing will be saved")
	default:
		db, err := sqlite.Open(cfg.DataDir())
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		d.db = db
		store = db
		logger.Debug("opened store", zap.String("path", db.Path()))
	}

	svc, err := dashboard.New(dcfg, store, nil, logger)
	if err != nil {
		d.closeStore()
		return nil, err
	}
	d.Service = svc
	return d, nil
}

// StoredKeys lists what the store currently holds, ordered by key.
func (d *Daemon) StoredKeys() ([]sqlite.Entry, error) {
	if d.db != nil {
		return d.db.Keys()
	}
	if d.mem == nil {
		return nil, errors.New("store closed")
	}
	var out []sqlite.Entry
	for _, key := range d.mem.Keys() {
		value, _, err := d.mem.Load(key)
		if err != nil {
			return nil, err
		}
		out = append(out, sqlite.Entry{Key: key, Size: len(value)})
	}
	return out, nil
}

// Handler returns the HTTP API handler.
func (d *Daemon) Handler() http.Handler {
	srv := api.NewServer(d.Service, d.log)
	if d.Config.Metrics.Enabled {
		srv.EnableMetrics()
	}
	return srv.Handler()
}

// Serve listens on the configured address until ctx is cancelled.
func (d *Daemon) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.Config.Addr(), err)
	}
	return d.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (d *Daemon) ServeListener(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.log.Info("api listening", zap.String("addr", ln.Addr().String()))
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Event streams hold connections open; close them first.
	d.Service.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	d.log.Info("api stopped")
	return nil
}

// Close releases the service and the store.
func (d *Daemon) Close() error {
	if d.Service != nil {
		d.Service.Close()
	}
	return d.closeStore()
}

func (d *Daemon) closeStore() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}
