package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and seed the image catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import [records.json]",
	Short: "Bulk insert image records from a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer file.Close()

		var records []domain.ImageRecord
		if err := json.NewDecoder(file).Decode(&records); err != nil {
			return fmt.Errorf("error decoding %s: %w", args[0], err)
		}

		catalog, closeCatalog, err := newImageCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer closeCatalog()

		inserted, err := catalog.BulkInsertImages(cmd.Context(), records)
		if err != nil {
			return fmt.Errorf("bulk insert failed after %d records: %w", inserted, err)
		}
		fmt.Printf("Imported %d image records\n", inserted)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List image records as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := domain.ImageFilter{}
		if cmd.Flags().Changed("property-id") {
			propertyID, _ := cmd.Flags().GetInt64("property-id")
			filter.PropertyID = &propertyID
		}

		catalog, closeCatalog, err := newImageCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer closeCatalog()

		records, err := catalog.ListImages(cmd.Context(), filter)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	catalogListCmd.Flags().Int64("property-id", 0, "only list images of this property")
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
