package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lychee-technology/swatches"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "swatch-tools",
		Short:             "Administer product swatch caches",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("CONFIG_FILE"), "YAML config file (optional)")

	root.AddCommand(
		newUpdateCmd(a),
		newDeleteCmd(a),
		newMigrateCmd(a),
		newResetCmd(a),
		newUnlockCmd(a),
		newProgressCmd(a),
		newInitDBCmd(a),
		newExportCmd(a),
		newWorkerCmd(a),
	)
	return root
}

func newUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Regenerate the swatches of every product",
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			started, err := plugin.Engine.RunAll(cmd.Context())
			if err != nil {
				return err
			}
			if !started {
				fmt.Fprintln(cmd.OutOrStdout(), "A swatch update is already running, nothing started.")
				return nil
			}
			progress, err := plugin.Engine.Progress(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d products.\n", progress.Count, progress.Max)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "attribute <taxonomy>",
		Short: "Regenerate the swatches of products using one attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			finished, err := plugin.Engine.RunForAttribute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !finished {
				fmt.Fprintf(cmd.OutOrStdout(), "A swatch update is already running, %s was not updated.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated products using %s.\n", args[0])
			return nil
		},
	})
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete every cached swatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			n, err := plugin.Engine.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d cached entries.\n", n)
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Import term colors from the legacy color field",
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			res, err := plugin.Migrator.MigrateLegacyColors(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Migrated %d terms, skipped %d.\n", res.Migrated, res.Skipped)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var deleteData bool
	cmd := &cobra.Command{
		Use:   "reset-plugin",
		Short: "Remove plugin state and restore default settings",
		Long: `Remove run state, settings and queued work, then restore default settings.
With --delete-data the cached swatches and term field values are removed as well, and
attributes using swatch types fall back to the select type.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			if err := plugin.Installer.Reset(cmd.Context(), deleteData); err != nil {
				return err
			}
			fmt.Println("Plugin reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteData, "delete-data", false, "also delete cached swatches and term values")
	return cmd
}

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Release a run-lock left by a crashed pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			if err := plugin.Engine.ForceUnlock(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Run-lock released.")
			return nil
		},
	}
}

func newProgressCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the state of the current or last pass",
		Example: `  swatch-tools progress
  swatch-tools progress -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			progress, err := plugin.Engine.Progress(cmd.Context())
			if err != nil {
				return err
			}
			return printProgress(progress, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func printProgress(p swatches.Progress, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(p)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "COUNT\tMAX\tRUNNING\tSTATUS")
		_, _ = fmt.Fprintf(w, "%d\t%d\t%t\t%s\n", p.Count, p.Max, p.Running, p.Status)
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Upload a Parquet snapshot of every cached swatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			if plugin.Exporter == nil {
				return swatches.NewSwatchError(swatches.ErrorTypeExport, swatches.ErrCodeExportUnavailable, "export is disabled, set EXPORT_ENABLED=true")
			}
			res, err := plugin.Exporter.Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d rows to s3://%s/%s (%d bytes).\n", res.Summary.Rows, res.Bucket, res.Key, res.Bytes)
			return nil
		},
	}
}

func newWorkerCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued regeneration work",
		RunE: func(cmd *cobra.Command, args []string) error {
			plugin, err := a.openPlugin(cmd.Context())
			if err != nil {
				return err
			}
			if once {
				n, err := plugin.Dispatcher.RunPending(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Processed %d work items.\n", n)
				return nil
			}
			if err := plugin.Dispatcher.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "process due items once and exit")
	return cmd
}
