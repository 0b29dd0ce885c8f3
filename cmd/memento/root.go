package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/memento/internal/config"
	"github.com/kailas-cloud/memento/internal/version"
)

type rootOptions struct {
	env string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "memento",
		Short:        "Photo memory index: ingest images, search and walk the timeline",
		Version:      version.Version + " (" + version.Commit + ", " + version.Date + ")",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(),
		"config environment (reads config/<env>.yaml)")

	cmd.AddCommand(
		newServeCmd(opts),
		newIndexCmd(opts),
		newIngestCmd(opts),
		newSearchCmd(opts),
		newTimelineCmd(opts),
	)
	return cmd
}

// withApp builds the shared dependencies, runs fn and releases them.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app) error) error {
	a, err := newApp(ctx, opts.env)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
