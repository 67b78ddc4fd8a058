package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/metrics"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the dictionary schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := g.open(false)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Init(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", db.Dialect())
			return nil
		},
	}
}

func newReindexCmd(g *globalFlags) *cobra.Command {
	var (
		workers      int
		dictionaryID int64
		announce     bool
	)
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Recompute lookup keys and word positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := g.open(false)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Init(cmd.Context()); err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Indexer.Workers
			}

			var publisher indexer.Publisher
			if announce && cfg.Kafka.Enabled {
				producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CacheInvalidate)
				defer producer.Close()
				publisher = producer
			}
			b := indexer.New(db, publisher, metrics.NewUnregistered(), indexer.Options{
				Workers:      workers,
				QueueSize:    cfg.Indexer.BatchSize,
				DictionaryID: dictionaryID,
			})
			stats, err := b.Rebuild(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (default from config)")
	cmd.Flags().Int64Var(&dictionaryID, "dictionary", 0, "rebuild one dictionary id only")
	cmd.Flags().BoolVar(&announce, "announce", true, "publish a cache invalidation event when Kafka is enabled")
	return cmd
}
