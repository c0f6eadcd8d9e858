package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pbaille/mindatlas/internal/analytics"
	"github.com/pbaille/mindatlas/internal/config"
	"github.com/pbaille/mindatlas/internal/domain"
	"github.com/pbaille/mindatlas/internal/journey"
	"github.com/pbaille/mindatlas/internal/logger"
	"github.com/pbaille/mindatlas/internal/prefs"
	"github.com/pbaille/mindatlas/internal/store"
)

var (
	configPath string
	dataDir    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mindatlas",
		Short:        "Guided thought journeys, kept on this device",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.mindatlas)")

	rootCmd.AddCommand(journeyCmd())
	rootCmd.AddCommand(draftsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(checkinsCmd())
	rootCmd.AddCommand(dbCmd())
	return rootCmd
}

// app holds everything a command needs. close releases it in reverse
// order of opening.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	repo      domain.Repository
	platform  store.Platform
	prefs     prefs.Store
	machine   *journey.Machine
	analytics *analytics.Service

	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.log.Sync()
}

func getApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	log, err := logger.New(logger.Options{
		Mode:       cfg.Logging.Mode,
		Level:      cfg.Logging.Level,
		LogContent: cfg.Logging.LogContent,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	dbPath, err := cfg.Storage.DatabasePath()
	if err != nil {
		return nil, err
	}
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	repo, platform, err := store.Open(ctx, store.Options{
		Platform: store.Platform(cfg.Storage.Platform),
		Path:     dbPath,
	}, log)
	if err != nil {
		return nil, err
	}
	a.repo, a.platform = repo, platform
	a.closers = append(a.closers, repo.Close)

	if err := a.openPrefs(ctx); err != nil {
		a.close()
		return nil, err
	}

	var sink domain.CheckInRepository = repo
	if cfg.Analytics.Sink == "slot" {
		sink = analytics.NewSlotRepository(a.prefs)
	}
	a.analytics = analytics.NewService(sink, log)
	a.machine = journey.New(repo, a.prefs, log)
	return a, nil
}

func (a *app) openPrefs(ctx context.Context) error {
	switch a.cfg.Prefs.Backend {
	case "memory":
		a.prefs = prefs.NewMemoryStore()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:        a.cfg.Redis.Addr,
			Password:    a.cfg.Redis.Password,
			DB:          a.cfg.Redis.DB,
			DialTimeout: a.cfg.Redis.DialTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("connect to redis at %s: %w", a.cfg.Redis.Addr, err)
		}
		rs := prefs.NewRedisStore(client, a.cfg.Redis.KeyPrefix)
		a.prefs = rs
		a.closers = append(a.closers, rs.Close)
	default:
		dir, err := a.cfg.PrefsDir()
		if err != nil {
			return err
		}
		fs, err := prefs.NewFileStore(dir)
		if err != nil {
			return err
		}
		a.prefs = fs
	}
	return nil
}

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the journey database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the storage backend and schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			path, _ := a.cfg.Storage.DatabasePath()
			fmt.Printf("Platform:  %s\n", a.platform)
			fmt.Printf("Database:  %s\n", path)
			fmt.Printf("Prefs:     %s\n", a.cfg.Prefs.Backend)
			fmt.Printf("Check-ins: %s\n", a.cfg.Analytics.Sink)
			if v, ok := a.repo.(store.Versioned); ok {
				version, err := v.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Schema:    v%d\n", version)
			}
			return nil
		},
	})
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
