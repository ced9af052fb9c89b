package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"assetd/pkg/config"
	"assetd/pkg/logger"
	"assetd/pkg/manualref"
	"assetd/pkg/qrcode"
	"assetd/services/app"
	"assetd/services/assets"
	"assetd/services/reconciler"
	"assetd/services/tools"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "assetctl",
		Short:         "Operator utility for assetd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newManualCommand())
	cmd.AddCommand(newQRCommand())
	cmd.AddCommand(newLabelsCommand())
	cmd.AddCommand(newMCPCommand())
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openApp loads configuration and connects to the database and, when set,
// NATS. Logs go to stderr.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Schema changes belong to the server.
	cfg.Database.Migrate = false

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

func newManualCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Manual reference utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "normalize <reference>",
		Short: "Print the canonical form of a manual reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized := manualref.Normalize(args[0])
			ref, err := manualref.Parse(normalized)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", normalized, ref)
			return nil
		},
	})

	var maxChars int
	preview := &cobra.Command{
		Use:   "preview <reference>",
		Short: "Print a bounded preview of a manual",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := assets.NewManualReader(logger.NewNop())
			p, err := reader.Preview(assets.Asset{ManualRef: manualref.Normalize(args[0])}, maxChars)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	preview.Flags().IntVar(&maxChars, "max-chars", assets.DefaultPreviewChars, "Maximum number of characters to read")
	cmd.AddCommand(preview)

	return cmd
}

func newQRCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Code image utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var output string
	render := &cobra.Command{
		Use:   "render <payload>",
		Short: "Render a payload as a PNG code image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := qrcode.New().Render(args[0])
			if err != nil {
				return err
			}
			if output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	render.Flags().StringVarP(&output, "output", "o", "", "Destination PNG file, or - for stdout")
	_ = render.MarkFlagRequired("output")
	cmd.AddCommand(render)

	var limit int
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Retry code image attachment for pending assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := reconciler.New(a.Assets, nil, reconciler.Config{BatchSize: limit}, a.Log)
			if err != nil {
				return err
			}
			stats, err := r.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, attached %d, failed %d\n", stats.Attempted, stats.Attached, stats.Failed)
			return nil
		},
	}
	reconcile.Flags().IntVar(&limit, "limit", 50, "Maximum number of pending assets to retry")
	cmd.AddCommand(reconcile)

	return cmd
}

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the asset tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(commandContext(cmd))
			if err != nil {
				return err
			}
			defer a.Close()
			return tools.ServeStdio(a.Tools)
		},
	}
}
