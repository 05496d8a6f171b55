package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LucasMargets11/morrisonv2/internal/keys"
	"github.com/LucasMargets11/morrisonv2/internal/service"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Migrate legacy image keys and retrigger missing derivatives",
	Long: `Sweeps the image catalog in id order. Legacy keys are copied under the original
prefix and their records repointed; with --retrigger-missing-derived, originals
missing a derivative are copied onto themselves so the resizer runs again.

Nothing is written unless --commit is given; --dry-run always wins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		// Sizes are validated before the catalog is touched.
		var sizes []int
		if flags.Changed("sizes") {
			csv, _ := flags.GetString("sizes")
			parsed, err := keys.ParseSizes(csv)
			if err != nil {
				return fmt.Errorf("invalid --sizes: %w", err)
			}
			sizes = parsed
		} else {
			resolved, err := targetSizes(ctx)
			if err != nil {
				return fmt.Errorf("failed to resolve target sizes: %w", err)
			}
			sizes = resolved
		}

		opts := service.BackfillOptions{Sizes: sizes}
		opts.Commit, _ = flags.GetBool("commit")
		opts.DryRun, _ = flags.GetBool("dry-run")
		opts.Limit, _ = flags.GetInt("limit")
		opts.OnlyMissing, _ = flags.GetBool("only-missing")
		opts.IncludeOriginal, _ = flags.GetBool("include-original")
		opts.OnlyOriginal, _ = flags.GetBool("only-original")
		opts.RetriggerMissingDerived, _ = flags.GetBool("retrigger-missing-derived")
		opts.Quiet, _ = flags.GetBool("quiet")
		if flags.Changed("property-id") {
			propertyID, _ := flags.GetInt64("property-id")
			opts.PropertyID = &propertyID
		}

		repo, factory, err := newObjectRepository(ctx)
		if err != nil {
			return err
		}
		defer factory.Close()

		catalog, closeCatalog, err := newImageCatalog(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect to the catalog: %w", err)
		}
		defer closeCatalog()

		fmt.Printf("Starting backfill. Dry run: %t, Commit: %t\n", opts.Simulate(), opts.Commit)
		report, err := service.NewBackfillService(repo, catalog, cfg.Layout()).Run(ctx, opts)
		if err != nil {
			return err
		}

		if asJSON, _ := flags.GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		s := report.Summary
		fmt.Printf("Finished. Processed: %d, Success: %d, Retriggered: %d, AlreadyOK: %d, Skipped: %d, Errors: %d, Planned: %d\n",
			s.Processed, s.Success, s.Retriggered, s.AlreadyOK, s.Skipped, s.Errors, s.Planned)
		return nil
	},
}

func init() {
	flags := backfillCmd.Flags()
	flags.Bool("dry-run", false, "simulate only (the default unless --commit is given)")
	flags.Bool("commit", false, "write to the object store and the catalog")
	flags.Int("limit", 0, "process at most N records, applied after filtering")
	flags.Bool("only-missing", false, "skip the copy when the migration destination already exists")
	flags.Bool("include-original", false, "include records already under the original prefix")
	flags.Bool("only-original", false, "process only records already under the original prefix")
	flags.Bool("retrigger-missing-derived", false, "copy originals missing a derivative onto themselves to retrigger the resizer")
	flags.String("sizes", "480,768", "comma-separated derivative widths to check (default from pipeline.target_sizes)")
	flags.Int64("property-id", 0, "only process images of this property")
	flags.Bool("quiet", false, "hide the progress bar")
	flags.Bool("json", false, "print the full report as JSON")

	rootCmd.AddCommand(backfillCmd)
}
