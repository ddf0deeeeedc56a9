package main

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/synckv"
	"github.com/unkn0wn-root/synckv/internal/config"
	logruslog "github.com/unkn0wn-root/synckv/log/logrus"
	zaplog "github.com/unkn0wn-root/synckv/log/zap"
	"github.com/unkn0wn-root/synckv/store"
	"github.com/unkn0wn-root/synckv/store/filestore"
	"github.com/unkn0wn-root/synckv/store/memstore"
	"github.com/unkn0wn-root/synckv/store/postgres"
	redisstore "github.com/unkn0wn-root/synckv/store/redis"
)

// loadConfig layers defaults, the --config file, SYNCKV_* env and flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		fromFile, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if storeKind != "" {
		cfg.Store = storeKind
	}
	if dataDir != "" {
		cfg.File.Dir = dataDir
	}
	if redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if pgDSN != "" {
		cfg.Postgres.DSN = pgDSN
	}
	if cacheName != "" {
		cfg.Cache.Name = cacheName
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig) (synckv.Logger, func(), error) {
	switch cfg.Format {
	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetLevel(lvl)
		return logruslog.New(l), func() {}, nil
	default:
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(lvl)
		zc.OutputPaths = []string{"stderr"}
		l, err := zc.Build()
		if err != nil {
			return nil, nil, fmt.Errorf("build logger: %w", err)
		}
		return zaplog.New(l), func() { _ = l.Sync() }, nil
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store {
	case "file":
		s, err := filestore.New(filestore.Config{Dir: cfg.File.Dir, Sync: cfg.File.Sync})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s, err := redisstore.New(redisstore.Config{Client: rdb, Prefix: cfg.Redis.Prefix})
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return s, func() { _ = rdb.Close() }, nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN, Table: cfg.Postgres.Table})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return memstore.New(), func() {}, nil
	}
}

// openCache builds an eagerly loaded cache over the configured store. The
// returned cleanup waits for outstanding writes before releasing anything.
func openCache(ctx context.Context) (synckv.Storage, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, syncLog, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		syncLog()
		return nil, nil, err
	}

	s, err := synckv.New(ctx, synckv.Options{
		Store:        st,
		Name:         cfg.Cache.Name,
		Logger:       log,
		Workers:      cfg.Cache.Workers,
		OpTimeout:    cfg.Cache.OpTimeout,
		StrictCommit: true,
	})
	if err != nil {
		closeStore()
		syncLog()
		return nil, nil, err
	}

	cleanup := func() error {
		defer syncLog()
		defer closeStore()
		werr := s.WaitForCommit(ctx)
		if cerr := s.Close(ctx); werr == nil {
			werr = cerr
		}
		return werr
	}
	return s, cleanup, nil
}
