// Command m3actl drives a chat session through the memory engine: write a
// message through the pipeline, then retrieve against it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/kittclouds/m3a/internal/affect"
	"github.com/kittclouds/m3a/internal/companion"
	"github.com/kittclouds/m3a/internal/echo"
	"github.com/kittclouds/m3a/internal/logging"
	"github.com/kittclouds/m3a/internal/pipeline"
	"github.com/kittclouds/m3a/internal/retriever"
	"github.com/kittclouds/m3a/internal/river"
	"github.com/kittclouds/m3a/internal/salience"
	"github.com/kittclouds/m3a/internal/store"
	"github.com/spf13/cobra"
)

var (
	dsn    string
	chatID string
)

func main() {
	root := &cobra.Command{
		Use:   "m3actl",
		Short: "Drive an M3A memory session from the command line",
	}
	root.PersistentFlags().StringVar(&dsn, "db", "m3a.db", "SQLite DSN for the memory store")
	root.PersistentFlags().StringVar(&chatID, "chat", "", "chat id (generated if empty)")

	root.AddCommand(writeCmd(), retrieveCmd(), statsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*store.Store, *logging.Logger, error) {
	log, err := logging.New("dev")
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(ctx, dsn, store.DefaultPragmas(), log)
	if err != nil {
		return nil, nil, err
	}
	return s, log, nil
}

func resolveChatID() string {
	if chatID != "" {
		return chatID
	}
	return uuid.NewString()
}

func writeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write [content]",
		Short: "Write a message through the L1-L5 pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, log, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			cid := resolveChatID()
			cfg, err := s.LoadConfig(ctx)
			if err != nil {
				return err
			}

			p := pipeline.New(s, log)
			result, err := p.Process(ctx, cid, uuid.NewString(), args[0], cfg, pipeline.Options{})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"chatId": cid, "result": result})
		},
	}
}

func retrieveCmd() *cobra.Command {
	var topK int
	var temporal string
	cmd := &cobra.Command{
		Use:   "retrieve [query]",
		Short: "Run the ensemble retriever against a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if chatID == "" {
				return fmt.Errorf("--chat is required")
			}

			retr := retriever.New(river.New(s), affect.New(s), echo.New(s), salience.New(s), companion.New(s))
			q := retriever.Query{
				ChatID:       chatID,
				Query:        args[0],
				TopK:         topK,
				TemporalBias: retriever.TemporalBias(temporal),
			}
			results, err := retr.Retrieve(ctx, q, nil)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of results to return")
	cmd.Flags().StringVar(&temporal, "temporal-bias", "balanced", "recent|balanced|salient")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show L1 river stats for a chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if chatID == "" {
				return fmt.Errorf("--chat is required")
			}

			stats, err := river.New(s).Stats(ctx, chatID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
