package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"

	"github.com/ayusman/rfbviz/internal/annotation"
	"github.com/ayusman/rfbviz/internal/app"
)

// config is read from RFBVIZ_* environment variables and then overridden by
// command-line flags.
type config struct {
	DataDir        string `env:"DATA_DIRECTORY,default=./data/rfb-r2-annotations.231117"`
	ResultsDir     string `env:"AGREEMENT_DIRECTORY,default=./results"`
	ImageDir       string `env:"IMAGE_DIRECTORY,default=./images"`
	AdjudicatedDir string `env:"ADJUDICATED_DIRECTORY"`
	AnnotatorOne   string `env:"ANNO_ONE,default=20007"`
	AnnotatorTwo   string `env:"ANNO_TWO,default=20008"`
	SkipPolicy     string `env:"SKIPTYPE,default=skips"`
	Aggregation    string `env:"AGGTYPE,default=product"`

	Addr      string `env:"ADDR,default=:8080"`
	StateDir  string `env:"STATE_DIRECTORY"`
	Journal   string `env:"JOURNAL"`
	BackupDir string `env:"BACKUP_DIRECTORY"`
	WebDir    string `env:"WEB_DIRECTORY"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
}

// loadConfig processes the environment and parses args on top of it. extra,
// when set, registers command-specific flags before parsing.
func loadConfig(ctx context.Context, name string, args []string, extra func(*flag.FlagSet)) (*config, error) {
	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper("RFBVIZ_", envconfig.OsLookuper()),
	}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.DataDir, "data_directory", cfg.DataDir, "Directory containing human or model annotations")
	fs.StringVar(&cfg.ResultsDir, "agreement_directory", cfg.ResultsDir, "Directory containing agreement metrics")
	fs.StringVar(&cfg.ImageDir, "image_directory", cfg.ImageDir, "File location of frame images")
	fs.StringVar(&cfg.AdjudicatedDir, "adjudicated_directory", cfg.AdjudicatedDir, "Directory receiving adjudicated annotations (default <data_directory>/adjudicated)")
	fs.StringVar(&cfg.AnnotatorOne, "anno_one", cfg.AnnotatorOne, "First annotator instance ID number")
	fs.StringVar(&cfg.AnnotatorTwo, "anno_two", cfg.AnnotatorTwo, "Second annotator instance ID number")
	fs.StringVar(&cfg.SkipPolicy, "skiptype", cfg.SkipPolicy, "Whether or not to include skips in the performance metrics")
	fs.StringVar(&cfg.Aggregation, "aggtype", cfg.Aggregation, "The method of aggregation for metrics")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.StateDir, "state_directory", cfg.StateDir, "Directory for the journal and backups (default ~/.rfbviz)")
	fs.StringVar(&cfg.Journal, "journal", cfg.Journal, "Journal database path (default <state_directory>/rfbviz.db)")
	fs.StringVar(&cfg.BackupDir, "backup_directory", cfg.BackupDir, "Directory for replaced annotation backups (default <state_directory>/backups)")
	fs.StringVar(&cfg.WebDir, "web_directory", cfg.WebDir, "Static web UI directory (searched for when empty)")
	fs.StringVar(&cfg.LogLevel, "log_level", cfg.LogLevel, "Log level: debug, info, warn or error")

	if extra != nil {
		extra(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths fills the state-dependent defaults and creates the state
// directory.
func (c *config) resolvePaths() error {
	if c.StateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home directory: %w", err)
		}
		c.StateDir = filepath.Join(homeDir, ".rfbviz")
	}
	if err := os.MkdirAll(c.StateDir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if c.Journal == "" {
		c.Journal = filepath.Join(c.StateDir, "rfbviz.db")
	}
	if c.BackupDir == "" {
		c.BackupDir = filepath.Join(c.StateDir, "backups")
	}
	return nil
}

// appConfig converts c to the application configuration.
func (c *config) appConfig() app.Config {
	return app.Config{
		Layout: annotation.Layout{
			DataDir:        c.DataDir,
			ResultsDir:     c.ResultsDir,
			ImageDir:       c.ImageDir,
			AdjudicatedDir: c.AdjudicatedDir,
		},
		BackupDir:   c.BackupDir,
		Annotators:  [2]string{c.AnnotatorOne, c.AnnotatorTwo},
		Aggregation: c.Aggregation,
		SkipPolicy:  c.SkipPolicy,
	}
}
