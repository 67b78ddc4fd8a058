package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/digest"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/lexicon/discovery"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/textmatch/scanner"
)

func newDiscoverCmd(g *globalFlags) *cobra.Command {
	var (
		root       string
		showDigest bool
	)
	cmd := &cobra.Command{
		Use:   "discover <word>",
		Short: "Find a word in every dictionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := g.open(true)
			if err != nil {
				return err
			}
			defer db.Close()
			engineCfg := discovery.NewConfig(cfg.Discovery, cfg.Matching)
			engine := discovery.New(db, engineCfg, nil)

			if showDigest {
				resp := digest.Lookup(cmd.Context(), engine, digest.Request{
					Words: []string{args[0]},
					Roots: []string{root},
				}, digest.Options{Segment: engineCfg.Segment})
				fmt.Fprintln(cmd.OutOrStdout(), resp.Digest)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), engine.Discover(cmd.Context(), args[0], root))
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "root hint")
	cmd.Flags().BoolVar(&showDigest, "digest", false, "print the text digest instead of JSON")
	return cmd
}

func newDefinitionCmd(g *globalFlags) *cobra.Command {
	var (
		words  []string
		window int
		full   bool
	)
	cmd := &cobra.Command{
		Use:   "definition <dictionary> <root>",
		Short: "Print the definition segments of a root",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := g.open(true)
			if err != nil {
				return err
			}
			defer db.Close()
			engine := discovery.New(db, discovery.NewConfig(cfg.Discovery, cfg.Matching), nil)

			def := engine.Definition(cmd.Context(), discovery.DefinitionRequest{
				Dictionary: args[0],
				Root:       args[1],
				Words:      words,
				WindowSize: window,
				Full:       full,
			})
			switch {
			case def.Failed:
				return fmt.Errorf("dictionary store unavailable")
			case !def.Found:
				return fmt.Errorf("root %q not found in %q", args[1], args[0])
			}
			return printJSON(cmd.OutOrStdout(), def)
		},
	}
	cmd.Flags().StringSliceVar(&words, "words", nil, "words to anchor the segments (default: the root)")
	cmd.Flags().IntVar(&window, "window", 0, "words of context on each side")
	cmd.Flags().BoolVar(&full, "full", false, "print the whole definition")
	return cmd
}

func newScanCmd() *cobra.Command {
	var (
		file     string
		word     string
		related  []string
		rootMode bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the occurrences of a word and its variants in a text file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if strings.TrimSpace(word) == "" {
				return fmt.Errorf("--word is required")
			}
			occs := scanner.ScanWords(string(data), word, related, rootMode)
			out := cmd.OutOrStdout()
			for _, o := range occs {
				fmt.Fprintf(out, "%d\t%d\t%s\t%s\t%s\n", o.Start, o.End, o.Category, o.Origin, o.MatchedText)
			}
			fmt.Fprintf(out, "%d occurrences, %d main\n", len(occs), scanner.MainCount(occs))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "text file to scan")
	cmd.Flags().StringVar(&word, "word", "", "word to look for")
	cmd.Flags().StringSliceVar(&related, "related", nil, "related words")
	cmd.Flags().BoolVar(&rootMode, "root-mode", false, "treat related words as main")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("word")
	return cmd
}
