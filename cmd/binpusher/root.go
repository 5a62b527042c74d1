package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jgoulah/binpusher/internal/config"
	"github.com/jgoulah/binpusher/internal/database"
	"github.com/jgoulah/binpusher/internal/publisher"
	"github.com/jgoulah/binpusher/internal/sensor"
	"github.com/jgoulah/binpusher/internal/store"
	"github.com/jgoulah/binpusher/internal/telemetry"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "binpusher",
	Short: "Push smart bin telemetry to a remote document store",
	Long: `binpusher samples the fill distance, weight and waste category of a smart bin,
derives its fill level and status, and publishes the bin status and a waste log
entry to a Firebase-style REST store every few seconds until interrupted.`,
	SilenceUsage: true,
	RunE:         runLoop,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "journal database file (default from config, or ./binpusher.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the journal database path
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.GetJournalPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the journal database
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// openOutput returns the writer for progress lines, teeing into a rotating
// log file when one is configured
func openOutput(cfg *config.Config, base io.Writer) (io.Writer, func()) {
	if cfg.Log.File == "" {
		return base, func() {}
	}

	logFile := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	}
	return io.MultiWriter(base, logFile), func() { _ = logFile.Close() }
}

// buildLoop wires the sensors, the remote store and the optional mirror and
// journal into a telemetry loop. The returned func releases what was opened.
func buildLoop(cfg *config.Config, out io.Writer) (*telemetry.Loop, func(), error) {
	minDistance, maxDistance := cfg.GetDistanceRange()
	sensors := sensor.NewMock(minDistance, maxDistance, cfg.GetMaxWeight(), cfg.Sensor.Seed)
	classifier := sensor.NewMockClassifier(cfg.Sensor.Seed)
	remote := store.New(cfg.Endpoint, cfg.GetHTTPTimeout())

	opts := []telemetry.Option{telemetry.WithOutput(out)}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.MQTT.Enabled {
		pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix())
		if err != nil {
			// The remote store is the contract; the mirror is best effort
			fmt.Fprintf(out, "Warning: MQTT mirror disabled: %v\n", err)
		} else {
			opts = append(opts, telemetry.WithMirror(pub))
			closers = append(closers, pub.Close)
		}
	}

	if cfg.Journal.Enabled {
		db, err := openDB(cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("opening journal: %w", err)
		}
		opts = append(opts, telemetry.WithJournal(db))
		closers = append(closers, func() { _ = db.Close() })
	}

	loop := telemetry.New(telemetry.Config{
		BinID:     cfg.GetBinID(),
		BinHeight: cfg.GetBinHeight(),
		Interval:  cfg.GetInterval(),
	}, sensors, classifier, remote, opts...)

	return loop, cleanup, nil
}
