package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LucasMargets11/morrisonv2/internal/service"
)

var migrateMediaCmd = &cobra.Command{
	Use:   "migrate-media",
	Short: "Upload local media files to the bucket",
	Long:  "Uploads every file under --root to the bucket at its relative path. Keys that already exist are left alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		root, _ := cmd.Flags().GetString("root")

		if stat, err := os.Stat(root); err != nil || !stat.IsDir() {
			log.Warnf("Media root %s does not exist. Nothing to migrate.", root)
			return nil
		}

		repo, factory, err := newObjectRepository(ctx)
		if err != nil {
			return err
		}
		defer factory.Close()

		opts := service.MediaMigrationOptions{}
		opts.Prefix, _ = cmd.Flags().GetString("prefix")
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")

		result, err := service.NewMediaMigrationService(repo).Migrate(ctx, os.DirFS(root), opts)
		if err != nil {
			return fmt.Errorf("media migration failed after %d uploads: %w", result.Uploaded, err)
		}

		if opts.DryRun {
			fmt.Printf("Dry-run complete. %d candidate files.\n", result.Scanned)
			return nil
		}
		fmt.Printf("Migration complete. %d uploaded (of %d scanned, %d already present).\n", result.Uploaded, result.Scanned, result.Existing)
		return nil
	},
}

func init() {
	migrateMediaCmd.Flags().String("root", "./media", "local media root")
	migrateMediaCmd.Flags().String("prefix", "", "only migrate files under this relative prefix")
	migrateMediaCmd.Flags().Bool("dry-run", false, "list files without uploading")
	migrateMediaCmd.Flags().Bool("quiet", false, "hide the progress bar")

	rootCmd.AddCommand(migrateMediaCmd)
}
