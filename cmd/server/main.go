package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pokebattle"
	"pokebattle/internal/battle"
	"pokebattle/internal/config"
	"pokebattle/internal/logging"
	"pokebattle/internal/storage"
)

var (
	cfgFile string
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:           "pokebattle",
	Short:         "Turn-based creature battle server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		v, err = config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		for key, flag := range map[string]string{
			config.KeyPort:        "port",
			config.KeyDBPath:      "db",
			config.KeyMovesPath:   "moves",
			config.KeyRosterPath:  "roster",
			config.KeyLogLevel:    "log-level",
			config.KeyLogFormat:   "log-format",
			config.KeyTurnTimeout: "turn-timeout",
			config.KeyVerifyTeams: "verify-teams",
		} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml)")
	pf.String("db", "", "roster database path")
	pf.String("moves", "", "move catalog file, embedded catalog when empty")
	pf.String("roster", "", "roster seed file, embedded roster when empty")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("log-format", "", "json or console")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig validates the bound configuration and builds the logger.
func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openRoster opens the roster database and seeds it on first use.
func openRoster(cfg config.Config, log *zap.Logger) (*storage.Store, error) {
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	var r io.ReadCloser
	if cfg.RosterPath != "" {
		r, err = os.Open(cfg.RosterPath)
	} else {
		r, err = pokebattle.Open(pokebattle.RosterFile)
	}
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open roster seed: %w", err)
	}
	defer r.Close()

	n, err := store.SeedIfEmpty(r)
	if err != nil {
		store.Close()
		return nil, err
	}
	if n > 0 {
		log.Info("seeded roster", zap.Int("creatures", n), zap.String("db", cfg.DBPath))
	}
	return store, nil
}

func loadCatalog(cfg config.Config, log *zap.Logger) *battle.Catalog {
	src := pokebattle.Source(pokebattle.MovesFile)
	if cfg.MovesPath != "" {
		src = battle.FileSource(cfg.MovesPath)
	}
	return battle.LoadCatalogOrDefault(src, log)
}
