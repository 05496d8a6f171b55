package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Upload, download and inspect single objects in the bucket",
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path] [key]",
	Short: "Upload a file to the bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, key := args[0], strings.TrimPrefix(args[1], "/")

		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer file.Close()

		repo, factory, err := newObjectRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer factory.Close()

		contentType, _ := cmd.Flags().GetString("content-type")
		if contentType == "" {
			contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filePath)))
		}
		cacheControl, _ := cmd.Flags().GetString("cache-control")

		err = repo.Put(cmd.Context(), key, file, objectstore.PutOptions{
			ContentType:  contentType,
			CacheControl: cacheControl,
		})
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}
		fmt.Printf("File uploaded successfully: %s -> %s\n", filePath, key)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [key] [output-path]",
	Short: "Download an object from the bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, outputPath := strings.TrimPrefix(args[0], "/"), args[1]

		repo, factory, err := newObjectRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer factory.Close()

		reader, _, err := repo.Get(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("error downloading file: %w", err)
		}
		defer reader.Close()

		// If output path is a directory, use the filename from the key
		if stat, err := os.Stat(outputPath); err == nil && stat.IsDir() {
			outputPath = filepath.Join(outputPath, filepath.Base(key))
		}

		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}

		outFile, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("error creating output file: %w", err)
		}
		defer outFile.Close()

		if _, err := io.Copy(outFile, reader); err != nil {
			return fmt.Errorf("error writing file: %w", err)
		}

		fmt.Printf("File downloaded successfully: %s -> %s\n", key, outputPath)
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat [key]",
	Short: "Show whether an object exists and its attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimPrefix(args[0], "/")

		repo, factory, err := newObjectRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer factory.Close()

		info, existence, err := repo.Head(cmd.Context(), key)
		if existence == domain.ProbeFailed {
			return fmt.Errorf("error checking %s: %w", key, err)
		}

		fmt.Printf("key:           %s\n", key)
		fmt.Printf("status:        %s\n", existence)
		if existence == domain.Exists {
			fmt.Printf("size:          %d\n", info.Size)
			fmt.Printf("content-type:  %s\n", info.ContentType)
			fmt.Printf("cache-control: %s\n", info.CacheControl)
			for k, v := range info.Metadata {
				fmt.Printf("meta %s: %s\n", k, v)
			}
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("content-type", "", "content type (guessed from the file extension when empty)")
	uploadCmd.Flags().String("cache-control", "", "cache directive stored with the object")

	objectCmd.AddCommand(uploadCmd, downloadCmd, statCmd)
	rootCmd.AddCommand(objectCmd)
}
