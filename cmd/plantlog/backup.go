package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/plantlog/internal/localstore"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import the local log as a JSON bundle",
}

var backupExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write every local day and the settings to FILE",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load days and settings from a bundle written by backup export",
	Long:  `Imports a bundle into the local log. Days already present are overwritten; the remote mirror is not touched.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupImport,
}

func init() {
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		bundle, err := env.local.ExportBundle(ctx)
		if err != nil {
			return err
		}

		if err := writeBundleFile(args[0], bundle); err != nil {
			return err
		}
		fmt.Printf("Exported %d days to %s\n", len(bundle.Days), args[0])
		return nil
	})
}

func writeBundleFile(path string, bundle localstore.Bundle) error {
	var buf bytes.Buffer
	if err := localstore.WriteBundle(&buf, bundle); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	bundle, err := localstore.ReadBundle(f)
	if err != nil {
		return err
	}

	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		if err := env.local.ImportBundle(ctx, bundle); err != nil {
			return err
		}
		fmt.Printf("Imported %d days from %s\n", len(bundle.Days), args[0])
		return nil
	})
}
