package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LucasMargets11/morrisonv2/internal/keys"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
)

var derivedURLCmd = &cobra.Command{
	Use:   "derived-url [original-key]",
	Short: "Print the derivative keys and public URLs of an original",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		originalKey := args[0]

		sizes, err := targetSizes(cmd.Context())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("sizes") {
			csv, _ := cmd.Flags().GetString("sizes")
			if sizes, err = keys.ParseSizes(csv); err != nil {
				return fmt.Errorf("invalid --sizes: %w", err)
			}
		}

		baseURL := cfg.Pipeline.PublicBaseURL
		if baseURL == "" && cfg.Bucket != "" {
			bucketConfig, err := objectstore.ParseBucketConfig(cfg.Bucket)
			if err != nil {
				return err
			}
			baseURL = keys.BucketBaseURL(bucketConfig.Name)
		}

		layout := cfg.Layout()
		for _, size := range sizes {
			key, err := layout.DerivedKey(originalKey, size)
			if err != nil {
				return err
			}
			if baseURL == "" {
				fmt.Printf("%d\t%s\n", size, key)
				continue
			}
			url, err := layout.DerivedURL(baseURL, originalKey, size)
			if err != nil {
				return err
			}
			fmt.Printf("%d\t%s\t%s\n", size, key, url)
		}
		return nil
	},
}

func init() {
	derivedURLCmd.Flags().String("sizes", "", "comma-separated widths (default from pipeline.target_sizes)")
	rootCmd.AddCommand(derivedURLCmd)
}
