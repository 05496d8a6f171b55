package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebp "golang.org/x/image/webp"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
	"github.com/LucasMargets11/morrisonv2/internal/keys"
	"github.com/LucasMargets11/morrisonv2/internal/repository/objectstore"
	"github.com/LucasMargets11/morrisonv2/internal/service"
)

const testBucket = "media"

// encodedImage returns a PNG of the given size filled with c.
func encodedImage(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(width, height, c), imaging.PNG))
	return buf.Bytes()
}

// recordingEncoder stands in for the WebP encoder and remembers the dimensions it was given.
type recordingEncoder struct {
	bounds []image.Rectangle
	err    error
}

func (e *recordingEncoder) encode(w io.Writer, img image.Image) error {
	if e.err != nil {
		return e.err
	}
	e.bounds = append(e.bounds, img.Bounds())
	_, err := w.Write([]byte("webp"))
	return err
}

// probeFailingRepository fails every Head call with a transient error.
type probeFailingRepository struct {
	objectstore.ObjectRepository
}

func (r *probeFailingRepository) Head(ctx context.Context, key string) (domain.ObjectInfo, domain.Existence, error) {
	return domain.ObjectInfo{Key: key}, domain.ProbeFailed, errors.New("connection reset")
}

func newGenerator(t *testing.T, repo objectstore.ObjectRepository) (*service.DerivativeGenerator, *recordingEncoder) {
	t.Helper()
	gen, err := service.NewDerivativeGenerator(objectstore.NewBucketRegistry(repo), keys.DefaultLayout(), []int{480, 768})
	require.NoError(t, err)
	enc := &recordingEncoder{}
	gen.SetEncoder(enc.encode)
	return gen, enc
}

func TestNewDerivativeGenerator_InvalidSizes(t *testing.T) {
	registry := objectstore.NewBucketRegistry()
	for _, sizes := range [][]int{nil, {480, 0}, {480, 480}} {
		_, err := service.NewDerivativeGenerator(registry, keys.DefaultLayout(), sizes)
		assert.ErrorIs(t, err, apperrors.ErrInvalidSizes, "sizes %v", sizes)
	}
}

func TestDerivativeGenerator_IgnoresKeysOutsideOriginalLayout(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "derived output", key: "properties/derived/480/42/photo.webp"},
		{name: "unrelated prefix", key: "uploads/42/photo.jpg"},
		{name: "unsupported extension", key: "properties/original/42/clip.gif"},
		{name: "no extension", key: "properties/original/42/photo"},
		{name: "prefix not at start", key: "tmp/properties/original/42/photo.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := objectstore.NewMemoryObjectRepository(testBucket)
			gen, enc := newGenerator(t, repo)

			result, err := gen.Process(context.Background(), domain.Notification{Bucket: testBucket, Key: tt.key})

			require.NoError(t, err)
			assert.True(t, result.Ignored)
			assert.Empty(t, repo.Operations())
			assert.Empty(t, enc.bounds)
		})
	}
}

func TestDerivativeGenerator_WritesEveryMissingSize(t *testing.T) {
	repo := objectstore.NewMemoryObjectRepository(testBucket)
	repo.Seed("properties/original/42/Photo.JPG", encodedImage(t, 1000, 500, color.NRGBA{R: 200, A: 255}), objectstore.PutOptions{})
	gen, enc := newGenerator(t, repo)

	result, err := gen.Process(context.Background(), domain.Notification{Bucket: testBucket, Key: "properties/original/42/Photo.JPG"})

	require.NoError(t, err)
	assert.False(t, result.Ignored)
	assert.Equal(t, []string{
		"properties/derived/480/42/Photo.webp",
		"properties/derived/768/42/Photo.webp",
	}, result.Written)
	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 480, 240), image.Rect(0, 0, 768, 384)}, enc.bounds)

	for _, key := range result.Written {
		info, existence, err := repo.Head(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, domain.Exists, existence)
		assert.Equal(t, service.DerivativeContentType, info.ContentType)
		assert.Equal(t, service.ImmutableCacheControl, info.CacheControl)
	}
}

func TestDerivativeGenerator_RepeatedNotificationIsNoOp(t *testing.T) {
	repo := objectstore.NewMemoryObjectRepository(testBucket)
	repo.Seed("properties/original/42/a.png", encodedImage(t, 900, 600, color.White), objectstore.PutOptions{})
	gen, _ := newGenerator(t, repo)
	n := domain.Notification{Bucket: testBucket, Key: "properties/original/42/a.png"}

	_, err := gen.Process(context.Background(), n)
	require.NoError(t, err)
	writes := len(repo.Operations())

	result, err := gen.Process(context.Background(), n)
	require.NoError(t, err)
	assert.Empty(t, result.Written)
	assert.Len(t, result.Skipped, 2)
	assert.Len(t, repo.Operations(), writes)
}

func TestDerivativeGenerator_OnlyFillsMissingDerivative(t *testing.T) {
	repo := objectstore.NewMemoryObjectRepository(testBucket)
	repo.Seed("properties/original/42/a.jpeg", encodedImage(t, 1200, 800, color.White), objectstore.PutOptions{})
	repo.Seed("properties/derived/480/42/a.webp", []byte("existing"), objectstore.PutOptions{})
	gen, enc := newGenerator(t, repo)

	result, err := gen.Process(context.Background(), domain.Notification{Bucket: testBucket, Key: "properties/original/42/a.jpeg"})

	require.NoError(t, err)
	assert.Equal(t, []string{"properties/derived/480/42/a.webp"}, result.Skipped)
	assert.Equal(t, []string{"properties/derived/768/42/a.webp"}, result.Written)
	assert.Len(t, enc.bounds, 1)

	existing, _ := repo.Object("properties/derived/480/42/a.webp")
	assert.Equal(t, []byte("existing"), existing)
}

func TestDerivativeGenerator_NeverUpscales(t *testing.T) {
	repo := objectstore.NewMemoryObjectRepository(testBucket)
	repo.Seed("properties/original/42/small.png", encodedImage(t, 300, 200, color.White), objectstore.PutOptions{})
	gen, enc := newGenerator(t, repo)

	_, err := gen.Process(context.Background(), domain.Notification{Bucket: testBucket, Key: "properties/original/42/small.png"})

	require.NoError(t, err)
	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 300, 200), image.Rect(0, 0, 300, 200)}, enc.bounds)
}

func TestDerivativeGenerator_ProbeFailureIsNotTreatedAsMissing(t *testing.T) {
	mem := objectstore.NewMemoryObjectRepository(testBucket)
	mem.Seed("properties/original/42/a.jpg", encodedImage(t, 1000, 500, color.White), objectstore.PutOptions{})
	gen, enc := newGenerator(t, &probeFailingRepository{ObjectRepository: mem})

	_, err := gen.Process(context.Background(), domain.Notification{Bucket: testBucket, Key: "properties/original/42/a.jpg"})

	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, mem.Operations())
	assert.Empty(t, enc.bounds)
}

func TestDerivativeGenerator_HandleNotificationsFailsFast(t *testing.T) {
	repo := objectstore.NewMemoryObjectRepository(testBucket)
	repo.Seed("properties/original/1/ok.jpg", encodedImage(t, 800, 400, color.White), objectstore.PutOptions{})
	repo.Seed("properties/original/2/broken.jpg", []byte("not an image"), objectstore.PutOptions{})
	repo.Seed("properties/original/3/later.jpg", encodedImage(t, 800, 400, color.White), objectstore.PutOptions{})
	gen, _ := newGenerator(t, repo)

	results, err := gen.HandleNotifications(context.Background(), []domain.Notification{
		{Bucket: testBucket, Key: "properties/original/1/ok.jpg"},
		{Bucket: testBucket, Key: "properties/original/2/broken.jpg"},
		{Bucket: testBucket, Key: "properties/original/3/later.jpg"},
	})

	require.Error(t, err)
	assert.Len(t, results, 1)
	for _, op := range repo.Operations() {
		assert.NotContains(t, op.Key, "/3/", "notifications after the failure must not be processed")
	}
}

func TestDerivativeGenerator_EncoderFailureAbortsBatch(t *testing.T) {
	repo := objectstore.NewMemoryObjectRepository(testBucket)
	repo.Seed("properties/original/1/a.jpg", encodedImage(t, 800, 400, color.White), objectstore.PutOptions{})
	gen, enc := newGenerator(t, repo)
	enc.err = errors.New("encoder unavailable")

	_, err := gen.HandleNotifications(context.Background(), []domain.Notification{{Bucket: testBucket, Key: "properties/original/1/a.jpg"}})

	assert.ErrorContains(t, err, "encoder unavailable")
	assert.Empty(t, repo.Operations())
}

func TestDerivativeGenerator_UnknownBucket(t *testing.T) {
	gen, _ := newGenerator(t, objectstore.NewMemoryObjectRepository(testBucket))

	_, err := gen.Process(context.Background(), domain.Notification{Bucket: "elsewhere", Key: "properties/original/1/a.jpg"})

	assert.ErrorIs(t, err, apperrors.ErrUnknownBucket)
}

func TestDerivativeGenerator_EncodesOpaqueWebP(t *testing.T) {
	repo := objectstore.NewMemoryObjectRepository(testBucket)
	repo.Seed("properties/original/42/logo.png", encodedImage(t, 960, 480, color.NRGBA{R: 255, A: 0}), objectstore.PutOptions{})
	gen, err := service.NewDerivativeGenerator(objectstore.NewBucketRegistry(repo), keys.DefaultLayout(), []int{480})
	require.NoError(t, err)

	_, err = gen.Process(context.Background(), domain.Notification{Bucket: testBucket, Key: "properties/original/42/logo.png"})
	require.NoError(t, err)

	data, ok := repo.Object("properties/derived/480/42/logo.webp")
	require.True(t, ok)
	img, err := xwebp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 480, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	_, _, _, a := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}
