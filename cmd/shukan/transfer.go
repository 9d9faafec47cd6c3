package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/transfer"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write routines, stats and settings as JSON",
	Long:  `Writes a backup document to file, or to stdout when no file is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			doc, err := e.Export(ctx)
			if err != nil {
				return err
			}
			data, err := transfer.Encode(doc)
			if err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			data = append(data, '\n')

			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := atomic.WriteFile(args[0], bytes.NewReader(data)); err != nil {
				return fmt.Errorf("write export to %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported to %s\n", args[0])
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace state with a backup document",
	Long:  `Reads a document written by export. Use "-" to read stdin. Only the sections present in the document are replaced.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read import: %w", err)
		}

		return withEngine(cmd, nil, func(ctx context.Context, e *engine.Engine) error {
			if err := e.Import(ctx, data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Import complete")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
