package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"assetd/pkg/config"
	"assetd/pkg/db"
	"assetd/pkg/qrcode"
	"assetd/services/labels"
)

func newLabelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Printable label archive export and verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newLabelsExportCommand())
	cmd.AddCommand(newLabelsVerifyCommand())
	return cmd
}

func newLabelsExportCommand() *cobra.Command {
	var (
		output   string
		location string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the code images of labelled assets to a tar.zst archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.URL == "" {
				return errors.New("ASSETD_DATABASE_URL is required")
			}

			pool, err := db.Open(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer pool.Close()

			source, err := labels.NewPgxSource(pool)
			if err != nil {
				return err
			}
			signer, err := labels.SignerFromEnv()
			if err != nil {
				return err
			}

			_, err = labels.Export(ctx, labels.ExportConfig{
				Source:      source,
				Images:      qrcode.New(),
				ScanBaseURL: cfg.Assets.ScanBaseURL,
				Location:    location,
				Output:      output,
				Signer:      signer,
				Stdout:      cmd.OutOrStdout(),
			})
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination archive (tar.zst)")
	cmd.Flags().StringVar(&location, "location", "", "Only export assets at this location")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newLabelsVerifyCommand() *cobra.Command {
	var archive string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an exported archive against its manifest and signature",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := labels.SignerFromEnv()
			if err != nil {
				return err
			}
			manifest, err := labels.Verify(commandContext(cmd), archive, signer)
			if err != nil {
				return err
			}
			state := "unsigned"
			if manifest.Signature != "" {
				state = "signed by " + manifest.SigningPublicKey
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %d labels (%s, created %s)\n", len(manifest.Labels), state, manifest.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&archive, "file", "f", "", "Archive to verify")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
