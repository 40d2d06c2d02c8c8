package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
)

// BadgerStore implements KV on Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger logger.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	closed     atomic.Bool

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewBadgerStore opens (or creates) a Badger database in cfg.Dir.
func NewBadgerStore(cfg KVConfig, log logger.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: log}
	opts.SyncWrites = cfg.Badger.SyncWrites
	opts.BlockCacheSize = 8 << 20
	opts.IndexCacheSize = 4 << 20
	if cfg.Badger.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.Badger.ValueLogFileSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg.Badger,
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	log.Debug("badger store opened", "dir", cfg.Dir, "gc_interval", cfg.Badger.GCInterval)
	return s, nil
}

// Get retrieves a value by key.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a key-value pair.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes a key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear removes all keys in a single transaction.
func (s *BadgerStore) Clear(ctx context.Context, keys ...string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GC runs value-log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) GC() error {
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
	}
	s.lastGCTime.Store(time.Now().UnixMilli())
	return nil
}

// Size returns the LSM and value log sizes in bytes.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopCh)
		<-s.doneCh
		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
	})
	return err
}

// RegisterMetrics exposes Badger size gauges on reg.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	lsm := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bunda",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes.",
	}, func() float64 {
		l, _ := s.Size()
		return float64(l)
	})
	vlog := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bunda",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes.",
	}, func() float64 {
		_, v := s.Size()
		return float64(v)
	})
	lastGC := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bunda",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last value-log GC.",
	}, func() float64 {
		return float64(s.lastGCTime.Load()) / 1000.0
	})

	for _, c := range []prometheus.Collector{lsm, vlog, lastGC} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register badger metrics: %w", err)
		}
	}
	return nil
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	interval := s.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.GC(); err != nil {
				s.logger.Warn("badger gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
// Badger is chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
