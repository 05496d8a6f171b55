package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/gen2brain/webp"
	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	"github.com/LucasMargets11/morrisonv2/internal/keys"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
)

const (
	DerivativeContentType = "image/webp"
	ImmutableCacheControl = "public, max-age=31536000, immutable"

	webpQuality = 80
	webpMethod  = 6
)

// StoreResolver returns the object store serving a bucket named in a notification.
type StoreResolver interface {
	GetRepositoryForBucket(bucketName string) (objectstore.ObjectRepository, error)
}

// Encoder writes img in the derivative format.
type Encoder func(w io.Writer, img image.Image) error

// EncodeWebP encodes lossy WebP at quality 80 with the slowest, best compression method.
func EncodeWebP(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, webp.Options{Quality: webpQuality, Method: webpMethod})
}

// GenerationResult reports what happened to one notification.
type GenerationResult struct {
	Key     string   `json:"key"`
	Ignored bool     `json:"ignored"`
	Written []string `json:"written,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// DerivativeGenerator writes resized WebP derivatives for newly created originals.
// It never touches the catalog.
type DerivativeGenerator struct {
	stores  StoreResolver
	layout  keys.Layout
	sizes   []int
	encoder Encoder
}

// NewDerivativeGenerator creates a generator producing one derivative per width in sizes.
func NewDerivativeGenerator(stores StoreResolver, layout keys.Layout, sizes []int) (*DerivativeGenerator, error) {
	sizes, err := keys.ValidateSizes(sizes)
	if err != nil {
		return nil, err
	}
	return &DerivativeGenerator{
		stores:  stores,
		layout:  layout,
		sizes:   sizes,
		encoder: EncodeWebP,
	}, nil
}

// SetEncoder replaces the WebP encoder.
func (g *DerivativeGenerator) SetEncoder(encoder Encoder) {
	g.encoder = encoder
}

// HandleNotifications processes notifications one after another. The first failure
// stops the batch and is returned together with the results gathered so far, so the
// hosting runtime can retry the whole invocation.
func (g *DerivativeGenerator) HandleNotifications(ctx context.Context, notifications []domain.Notification) ([]GenerationResult, error) {
	results := make([]GenerationResult, 0, len(notifications))
	for _, n := range notifications {
		result, err := g.Process(ctx, n)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Process generates the missing derivatives of one original. Keys outside the
// original prefix or without an accepted extension are ignored, which also keeps the
// generator from reprocessing its own output.
func (g *DerivativeGenerator) Process(ctx context.Context, n domain.Notification) (GenerationResult, error) {
	result := GenerationResult{Key: n.Key}
	logger := log.WithFields(log.Fields{"bucket": n.Bucket, "key": n.Key})

	if !g.layout.IsOriginalKey(n.Key) || !g.layout.HasAllowedExtension(n.Key) {
		logger.Debug("Ignoring object outside the original layout")
		result.Ignored = true
		return result, nil
	}

	store, err := g.stores.GetRepositoryForBucket(n.Bucket)
	if err != nil {
		return result, err
	}

	derivatives, err := g.layout.DerivativeSet(n.Key, g.sizes)
	if err != nil {
		return result, err
	}

	var source *image.NRGBA
	for _, d := range derivatives {
		_, existence, err := store.Head(ctx, d.Key)
		switch existence {
		case domain.Exists:
			logger.WithField("derived_key", d.Key).Debug("Derivative already exists")
			result.Skipped = append(result.Skipped, d.Key)
			continue
		case domain.NotFound:
		default:
			return result, fmt.Errorf("failed to check derivative %s: %w", d.Key, err)
		}

		// Decode lazily: a replayed notification with every derivative present never
		// downloads the original.
		if source == nil {
			source, err = g.loadOriginal(ctx, store, n.Key)
			if err != nil {
				return result, err
			}
		}

		if err := g.writeDerivative(ctx, store, source, d); err != nil {
			return result, err
		}
		logger.WithFields(log.Fields{"size": d.Size, "derived_key": d.Key}).Info("Derivative written")
		result.Written = append(result.Written, d.Key)
	}

	return result, nil
}

func (g *DerivativeGenerator) loadOriginal(ctx context.Context, store objectstore.ObjectRepository, key string) (*image.NRGBA, error) {
	body, _, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch original %s: %w", key, err)
	}
	defer body.Close()

	img, err := decodeOriginal(body)
	if err != nil {
		return nil, fmt.Errorf("original %s: %w", key, err)
	}
	return flattenOnWhite(img), nil
}

func (g *DerivativeGenerator) writeDerivative(ctx context.Context, store objectstore.ObjectRepository, source *image.NRGBA, d domain.Derivative) error {
	var buf bytes.Buffer
	if err := g.encoder(&buf, fitWidth(source, d.Size)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.Key, err)
	}

	return store.Put(ctx, d.Key, &buf, objectstore.PutOptions{
		ContentType:  DerivativeContentType,
		CacheControl: ImmutableCacheControl,
	})
}
