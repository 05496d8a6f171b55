// Package service provides the image pipeline's business logic.
//
// MediaMigrationService copies a local media tree into the object store:
// - Object keys are the slash-separated paths relative to the media root
// - Keys that already exist are left untouched, so a run can be repeated
// - A dry run only lists the candidate files
package service

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
)

// MediaCacheControl is set on migrated media files.
const MediaCacheControl = "public, max-age=31536000"

// MediaMigrationOptions configure one migration run.
type MediaMigrationOptions struct {
	// Prefix restricts the run to files whose relative path starts with it.
	Prefix string
	DryRun bool
	Quiet  bool
}

// MediaMigrationResult counts the files seen by a run.
type MediaMigrationResult struct {
	Scanned  int      `json:"scanned"`
	Uploaded int      `json:"uploaded"`
	Existing int      `json:"existing"`
	Keys     []string `json:"keys,omitempty"`
}

// MediaMigrationService uploads local media files to the object store
type MediaMigrationService struct {
	objectRepo objectstore.ObjectRepository
	progress   io.Writer
}

// NewMediaMigrationService creates a new MediaMigrationService
func NewMediaMigrationService(objectRepo objectstore.ObjectRepository) *MediaMigrationService {
	return &MediaMigrationService{
		objectRepo: objectRepo,
		progress:   os.Stderr,
	}
}

// Migrate walks media and uploads every file not yet present in the store. Keys lists
// the candidates in a dry run and the uploaded keys otherwise. The first store error
// stops the run.
func (m *MediaMigrationService) Migrate(ctx context.Context, media fs.FS, opts MediaMigrationOptions) (MediaMigrationResult, error) {
	prefix := strings.Trim(opts.Prefix, "/")

	var files []string
	err := fs.WalkDir(media, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if prefix != "" && !strings.HasPrefix(p, prefix) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return MediaMigrationResult{}, fmt.Errorf("failed to walk media root: %w", err)
	}

	result := MediaMigrationResult{Scanned: len(files)}
	if opts.DryRun {
		for _, key := range files {
			log.Infof("[dry-run] %s", key)
		}
		result.Keys = files
		return result, nil
	}

	var bar *progressbar.ProgressBar
	if !opts.Quiet {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(m.progress),
			progressbar.OptionSetDescription("migrate-media"),
			progressbar.OptionShowCount(),
		)
	}

	for _, key := range files {
		uploaded, err := m.uploadIfMissing(ctx, media, key)
		if err != nil {
			return result, err
		}
		if uploaded {
			result.Uploaded++
			result.Keys = append(result.Keys, key)
		} else {
			result.Existing++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	log.WithFields(log.Fields{
		"scanned":  result.Scanned,
		"uploaded": result.Uploaded,
		"existing": result.Existing,
	}).Info("Media migration complete")
	return result, nil
}

func (m *MediaMigrationService) uploadIfMissing(ctx context.Context, media fs.FS, key string) (bool, error) {
	_, existence, err := m.objectRepo.Head(ctx, key)
	switch existence {
	case domain.Exists:
		log.Debugf("Skipping %s: already in %s", key, m.objectRepo.GetBucketName())
		return false, nil
	case domain.NotFound:
	default:
		return false, err
	}

	file, err := media.Open(key)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer file.Close()

	log.Debugf("Uploading media file %s", key)
	err = m.objectRepo.Put(ctx, key, file, objectstore.PutOptions{
		ContentType:  contentTypeFor(key),
		CacheControl: MediaCacheControl,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func contentTypeFor(key string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(key))); t != "" {
		return t
	}
	return "application/octet-stream"
}
