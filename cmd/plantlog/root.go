package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jgoulah/plantlog/internal/config"
	"github.com/jgoulah/plantlog/internal/database"
	"github.com/jgoulah/plantlog/internal/daysync"
	"github.com/jgoulah/plantlog/internal/localstore"
	"github.com/jgoulah/plantlog/internal/logging"
	"github.com/jgoulah/plantlog/internal/publisher"
	"github.com/jgoulah/plantlog/internal/remote"
	"github.com/jgoulah/plantlog/internal/session"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "plantlog",
	Short: "Daily feeder and turbine meter log for power plants",
	Long: `plantlog records daily feeder and turbine meter readings, derives export,
production, consumption and gas figures, and exports monthly reports.
Records are kept in a local SQLite database and mirrored to PostgreSQL
when a remote is configured and you are signed in.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./plantlog.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB(cfg *config.Config) (*database.DB, error) {
	path := cfg.GetDBPath()
	if dbPath != "" {
		path = dbPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// appEnv is everything a command needs, built from config
type appEnv struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *database.DB
	local     *localstore.Store
	remote    *remote.Store
	sessions  *session.Provider
	publisher *publisher.Publisher
	orch      *daysync.Orchestrator
}

type envOptions struct {
	// publish saved days through MQTT/Home Assistant when configured
	publish bool
}

// openEnv loads config and wires the stores, session provider and orchestrator
func openEnv(ctx context.Context, opts envOptions) (*appEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.GetLogLevel(), cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	env := &appEnv{
		cfg:    cfg,
		logger: logger,
		db:     db,
		local:  localstore.New(db, logger),
	}

	var creds session.CredentialStore
	if cfg.Remote.Enabled {
		bc := remote.BreakerConfig{
			ConsecutiveFailures: cfg.GetBreakerFailures(),
			OpenTimeout:         cfg.GetBreakerTimeout(),
		}
		rs, err := remote.Open(ctx, cfg.Remote.DSN, bc, logger)
		if err != nil {
			// Local-first: keep working without the mirror
			logger.Warn("remote store unavailable, working locally", zap.Error(err))
		} else {
			env.remote = rs
			creds = rs
		}
	}

	env.sessions = session.NewProvider(db, creds, cfg.GetSigningKey(), logger)

	var orchOpts []daysync.Option
	if env.remote != nil {
		orchOpts = append(orchOpts, daysync.WithRemote(env.remote, env.sessions))
	}
	if opts.publish && (cfg.MQTT.Enabled || cfg.HomeAssistant.Enabled) {
		pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix(), cfg.HomeAssistant, logger)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("creating publisher: %w", err)
		}
		env.publisher = pub
		orchOpts = append(orchOpts, daysync.WithNotifier(pub))
	}
	env.orch = daysync.New(env.local, logger, orchOpts...)

	return env, nil
}

// Close waits for background syncs and releases every connection
func (e *appEnv) Close() {
	if e.orch != nil {
		e.orch.Wait()
	}
	if e.publisher != nil {
		e.publisher.Close()
	}
	if e.remote != nil {
		if err := e.remote.Close(); err != nil {
			e.logger.Warn("closing remote store", zap.Error(err))
		}
	}
	if err := e.db.Close(); err != nil {
		e.logger.Warn("closing database", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// withEnv runs fn with a wired environment and closes it afterwards
func withEnv(cmd *cobra.Command, opts envOptions, fn func(ctx context.Context, env *appEnv) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := openEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}
