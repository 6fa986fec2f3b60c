package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/keybeat-app/keybeat/internal/api"
	"github.com/keybeat-app/keybeat/internal/app/engagement"
	"github.com/keybeat-app/keybeat/internal/app/reconcile"
	"github.com/keybeat-app/keybeat/internal/app/stats"
	"github.com/keybeat-app/keybeat/internal/app/tracker"
	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/health"
	"github.com/keybeat-app/keybeat/internal/infra/remote"
	"github.com/keybeat-app/keybeat/internal/infra/sqlite"
)

// Daemon is the Keybeat runtime. It wires together all services.
type Daemon struct {
	Config    Config
	DB        *sqlite.DB
	Store     *stats.Store
	Hub       *api.Hub
	Tracker   *tracker.Tracker
	Notifier  *engagement.Notifier
	Evaluator *engagement.Evaluator
	Engine    *reconcile.Engine
	Health    *health.Checker
	Server    *api.Server

	deviceID   string
	deviceName string
	cancel     context.CancelFunc

	mu            sync.Mutex // guards Config and syncInterval after start
	syncInterval  time.Duration
	sweepInterval time.Duration
}

// New creates and initializes a Daemon from the config file on disk.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	db, err := sqlite.Open(keybeatHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := stats.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	hub := api.NewHub()
	tr := tracker.NewTracker(store, hub, tracker.Config{
		MaxEventsPerSecond: cfg.Tracker.MaxEventsPerSecond,
		OverloadThreshold:  int64(cfg.Tracker.OverloadThreshold),
		BatchSize:          cfg.Tracker.BatchSize,
		FlushInterval:      parseDuration(cfg.Tracker.FlushInterval, 0),
		NotifyInterval:     parseDuration(cfg.Tracker.NotifyInterval, 0),
	})

	policy := domain.DefaultNotificationPolicy()
	if cfg.Engagement.MaxNotificationsPerDay > 0 {
		policy.MaxPerDay = cfg.Engagement.MaxNotificationsPerDay
	}
	notifier := engagement.NewNotifierWithPolicy(db, hub, policy)
	eval := engagement.NewEvaluator(store, notifier, cfg.Engagement.EveryEvents, time.Now().UnixNano())
	tr.OnAccepted = eval.NoteAccepted

	deviceID, deviceName, err := deviceIdentity(db, cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("device identity: %w", err)
	}

	d := &Daemon{
		Config:        cfg,
		DB:            db,
		Store:         store,
		Hub:           hub,
		Tracker:       tr,
		Notifier:      notifier,
		Evaluator:     eval,
		deviceID:      deviceID,
		deviceName:    deviceName,
		syncInterval:  parseDuration(cfg.Sync.Interval, 5*time.Minute),
		sweepInterval: parseDuration(cfg.Engagement.SweepInterval, 30*time.Second),
	}

	// The engine always exists; without a relay it fails fast with
	// ErrSyncDisabled and config reloads can attach one later.
	d.Engine = reconcile.NewEngine(store, nil, reconcile.Identity{})
	d.applySyncConfig(cfg.Sync)

	d.Health = health.NewChecker(db, store, tr)
	d.Health.AddCheck(health.Check{
		Name: "sync",
		CheckFn: func(ctx context.Context) error {
			if st := d.Engine.Status(); st.LastError != "" {
				return fmt.Errorf("last sync failed: %s", st.LastError)
			}
			return nil
		},
	})

	srv := api.NewServer(store, tr, db, hub)
	srv.SetEngine(d.Engine)
	srv.SetChecker(d.Health)
	if cfg.Logging.Level == "debug" {
		srv.EnableRequestLog()
	}
	d.Server = srv

	return d, nil
}

// deviceIdentity loads the persistent device id, minting one on first run,
// and resolves the advertised device name.
func deviceIdentity(db *sqlite.DB, cfg Config) (id, name string, err error) {
	id, err = db.GetState("device_id")
	if err != nil {
		return "", "", err
	}
	if id == "" {
		id = uuid.New().String()
		if err = db.SetState("device_id", id); err != nil {
			return "", "", err
		}
	}

	name = cfg.Daemon.DeviceName
	if name == "" {
		if host, herr := os.Hostname(); herr == nil {
			name = host
		} else {
			name = "keybeat-device"
		}
	}
	if err = db.SetState("device_name", name); err != nil {
		return "", "", err
	}
	return id, name, nil
}

// applySyncConfig points the engine at the configured relay, or detaches it
// when no relay URL is set.
func (d *Daemon) applySyncConfig(sc SyncConfig) {
	id := reconcile.Identity{
		UserID:     sc.UserID,
		DeviceID:   d.deviceID,
		DeviceName: d.deviceName,
	}
	if sc.RelayURL == "" {
		d.Engine.SetRemote(nil, id)
		return
	}
	d.Engine.SetRemote(remote.NewClient(sc.RelayURL, sc.Token), id)
	if err := d.DB.SetState("owner_id", sc.UserID); err != nil {
		log.Printf("[daemon] persist owner id: %v", err)
	}
}

// applyConfig handles a live config reload. Only the sync settings take
// effect without a restart; everything else waits for the next start.
func (d *Daemon) applyConfig(cfg Config) {
	d.mu.Lock()
	changed := cfg.Sync != d.Config.Sync
	d.Config = cfg
	d.syncInterval = parseDuration(cfg.Sync.Interval, 5*time.Minute)
	d.mu.Unlock()

	if changed {
		d.applySyncConfig(cfg.Sync)
		log.Printf("[daemon] sync settings reloaded (relay=%q)", cfg.Sync.RelayURL)
	}
}

func (d *Daemon) currentSyncInterval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syncInterval
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)
	go d.sweepLoop(ctx)
	go d.syncLoop(ctx)
	go func() {
		if err := WatchConfig(ctx, d.applyConfig); err != nil {
			log.Printf("[daemon] config watch disabled: %v", err)
		}
	}()

	// Prime challenges and the personality read before the first tick.
	d.Evaluator.SweepAt(time.Now())

	addr := d.Config.Daemon.Listen

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     d.Server.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: /v1/live holds its response open indefinitely.
		IdleTimeout: 2 * time.Minute,
		// Tie request contexts to the daemon context so live streams end
		// during shutdown and Shutdown can drain.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		if err := d.Tracker.Close(); err != nil {
			log.Printf("[daemon] final flush failed: %v", err)
		}
		_ = d.DB.Close()
	}()

	fmt.Printf("Keybeat serving on http://%s\n", addr)
	fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	if d.Engine.Configured() {
		fmt.Printf("  Sync: %s every %s\n", d.Config.Sync.RelayURL, d.currentSyncInterval())
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Evaluator.SweepAt(time.Now())
		}
	}
}

func (d *Daemon) syncLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		// time.After instead of a ticker so an interval change in a config
		// reload takes effect on the next round.
		case <-time.After(d.currentSyncInterval()):
		}
		if !d.Engine.Configured() {
			continue
		}
		if err := d.Engine.Sync(ctx); err != nil && err != domain.ErrSyncBusy {
			log.Printf("[daemon] periodic sync: %v", err)
		}
	}
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Tracker != nil {
		_ = d.Tracker.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

// ServeRelay runs the replica relay server and blocks until shutdown. Relay
// state lives in its own database directory, so one machine can host a relay
// next to a regular daemon.
func ServeRelay(ctx context.Context, cfg Config) error {
	db, err := sqlite.Open(filepath.Join(keybeatHome(), "relay"))
	if err != nil {
		return fmt.Errorf("open relay database: %w", err)
	}
	defer db.Close()

	srv := api.NewRelayServer(db, cfg.Relay.Token)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpServer := &http.Server{
		Addr:         cfg.Relay.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Keybeat relay serving on http://%s\n", cfg.Relay.Listen)
	if cfg.Relay.Token == "" {
		fmt.Printf("  WARNING: no relay token configured, uploads are unauthenticated\n")
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
