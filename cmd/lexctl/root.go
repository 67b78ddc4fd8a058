package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/store"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "lexctl",
		Short:         "Maintain and query the Arabic dictionary database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.Setup(g.logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides the config)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newInitCmd(g),
		newReindexCmd(g),
		newDiscoverCmd(g),
		newDefinitionCmd(g),
		newScanCmd(),
	)
	return root
}

func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Path = g.dbPath
	}
	return cfg, nil
}

// open loads the config and opens the store; write commands pass
// readOnly=false.
func (g *globalFlags) open(readOnly bool) (*config.Config, *store.Handle, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(cfg.Store, cfg.Postgres, readOnly)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
