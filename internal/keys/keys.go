// Package keys maps between original and derived object keys.
//
// Layout on the object store:
//
//	original: properties/original/<property_id>/<filename>
//	derived:  properties/derived/<size>/<property_id>/<basename>.webp
//
// Everything here is pure string manipulation. The generator, the backfill tool and
// the read side all derive names through the same Layout so that existence checks
// on derived keys stay meaningful.
package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

const (
	DefaultOriginalPrefix = "properties/original/"
	DefaultDerivedPrefix  = "properties/derived/"
	DefaultBucketDomain   = "amazonaws.com/"
	WebPExtension         = ".webp"
)

// DefaultExtensions are the source extensions the pipeline accepts and strips.
var DefaultExtensions = []string{".jpeg", ".jpg", ".png", ".webp"}

// DefaultSizes are the derivative widths generated and audited when nothing else is configured.
var DefaultSizes = []int{480, 768}

// Layout holds the naming configuration shared by the generator and the backfill tool.
type Layout struct {
	OriginalPrefix    string
	DerivedPrefix     string
	AllowedExtensions []string
	BucketDomain      string
}

// NewLayout normalizes prefixes to a single trailing slash and extensions to
// lower case with a leading dot. Empty values fall back to the defaults.
func NewLayout(originalPrefix, derivedPrefix string, extensions []string, bucketDomain string) Layout {
	if originalPrefix == "" {
		originalPrefix = DefaultOriginalPrefix
	}
	if derivedPrefix == "" {
		derivedPrefix = DefaultDerivedPrefix
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if bucketDomain == "" {
		bucketDomain = DefaultBucketDomain
	}

	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}

	return Layout{
		OriginalPrefix:    strings.TrimRight(originalPrefix, "/") + "/",
		DerivedPrefix:     strings.TrimRight(derivedPrefix, "/") + "/",
		AllowedExtensions: exts,
		BucketDomain:      bucketDomain,
	}
}

// DefaultLayout returns the canonical properties/original -> properties/derived layout.
func DefaultLayout() Layout {
	return NewLayout("", "", nil, "")
}

// IsOriginalKey reports whether key is already in the original layout.
func (l Layout) IsOriginalKey(key string) bool {
	return key != "" && strings.HasPrefix(key, l.OriginalPrefix)
}

// HasAllowedExtension reports whether key ends in one of the accepted source extensions.
func (l Layout) HasAllowedExtension(key string) bool {
	return l.knownExtension(key) != ""
}

func (l Layout) knownExtension(key string) string {
	lower := strings.ToLower(key)
	for _, ext := range l.AllowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// ToWebPKey swaps one trailing known extension for .webp. Keys without a known
// extension get .webp appended instead of being rejected.
func (l Layout) ToWebPKey(key string) string {
	if ext := l.knownExtension(key); ext != "" {
		return key[:len(key)-len(ext)] + WebPExtension
	}
	return key + WebPExtension
}

// DerivedKey returns the derived key for originalKey at the given width. Only the
// first occurrence of the original prefix is substituted.
func (l Layout) DerivedKey(originalKey string, size int) (string, error) {
	if !strings.Contains(originalKey, l.OriginalPrefix) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrMalformedKey, originalKey)
	}
	if size <= 0 {
		return "", fmt.Errorf("%w: got %d", apperrors.ErrInvalidSizes, size)
	}

	derived := strings.Replace(originalKey, l.OriginalPrefix, l.DerivedPrefix+strconv.Itoa(size)+"/", 1)
	return l.ToWebPKey(derived), nil
}

// DerivativeSet returns the expected (size, key) pairs for originalKey in the order of sizes.
func (l Layout) DerivativeSet(originalKey string, sizes []int) ([]domain.Derivative, error) {
	set := make([]domain.Derivative, 0, len(sizes))
	for _, size := range sizes {
		key, err := l.DerivedKey(originalKey, size)
		if err != nil {
			return nil, err
		}
		set = append(set, domain.Derivative{Size: size, Key: key})
	}
	return set, nil
}

// ExtractStorageKey prefers the record's storage key and otherwise recovers one from
// its public URL by dropping everything up to the bucket domain.
func (l Layout) ExtractStorageKey(record domain.ImageRecord) (string, bool) {
	if record.StorageKey != "" {
		return record.StorageKey, true
	}
	if record.PublicURL == "" || l.BucketDomain == "" {
		return "", false
	}

	_, key, found := strings.Cut(record.PublicURL, l.BucketDomain)
	if !found || key == "" {
		return "", false
	}
	return key, true
}

// MigrationKey returns the original-layout destination for a legacy key. The record
// id is embedded so two legacy files sharing a basename never collide.
func (l Layout) MigrationKey(record domain.ImageRecord, legacyKey string) string {
	return fmt.Sprintf("%s%d/%d-%s", l.OriginalPrefix, record.PropertyID, record.ID, basename(legacyKey))
}

// ReplaceKeyInURL rewrites every textual occurrence of oldKey in rawURL with newKey.
// It is a plain substring substitution, not a URL parse: it reports false and leaves
// rawURL untouched when oldKey does not appear in it.
func ReplaceKeyInURL(rawURL, oldKey, newKey string) (string, bool) {
	if rawURL == "" || oldKey == "" || !strings.Contains(rawURL, oldKey) {
		return rawURL, false
	}
	return strings.ReplaceAll(rawURL, oldKey, newKey), true
}

// BucketBaseURL is the virtual-hosted S3 base URL for bucket.
func BucketBaseURL(bucket string) string {
	return "https://" + bucket + ".s3.amazonaws.com"
}

// DerivedURL joins baseURL with the derived key of originalKey at size.
func (l Layout) DerivedURL(baseURL, originalKey string, size int) (string, error) {
	key, err := l.DerivedKey(originalKey, size)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(baseURL, "/") + "/" + key, nil
}

// ParseSizes parses a comma-separated list of widths such as "480,768". Blank entries
// are ignored; anything else that is not a distinct positive integer is an error.
func ParseSizes(csv string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", apperrors.ErrInvalidSizes, part)
		}
		sizes = append(sizes, size)
	}
	return ValidateSizes(sizes)
}

// ValidateSizes rejects empty, non-positive and duplicate widths. Duplicates would
// map two configured sizes onto the same derived key.
func ValidateSizes(sizes []int) ([]int, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: no sizes given", apperrors.ErrInvalidSizes)
	}
	seen := make(map[int]bool, len(sizes))
	for _, size := range sizes {
		if size <= 0 {
			return nil, fmt.Errorf("%w: %d is not positive", apperrors.ErrInvalidSizes, size)
		}
		if seen[size] {
			return nil, fmt.Errorf("%w: %d listed twice", apperrors.ErrInvalidSizes, size)
		}
		seen[size] = true
	}
	return sizes, nil
}

func basename(key string) string {
	return key[strings.LastIndex(key, "/")+1:]
}
