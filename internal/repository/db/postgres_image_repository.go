package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LucasMargets11/morrisonv2/internal/domain"
	apperrors "github.com/LucasMargets11/morrisonv2/internal/errors"
)

// DefaultImageTable is the property image table of the listing backend.
const DefaultImageTable = "properties_propertyimage"

// PostgresImageRepository reads and updates image records in the listing database.
type PostgresImageRepository struct {
	pool   *pgxpool.Pool
	table  string
	quoted string
}

// NewPostgresImageRepository initializes a repository over table (DefaultImageTable when empty).
func NewPostgresImageRepository(pool *pgxpool.Pool, table string) *PostgresImageRepository {
	if table == "" {
		table = DefaultImageTable
	}
	return &PostgresImageRepository{
		pool:   pool,
		table:  table,
		quoted: pgx.Identifier{table}.Sanitize(),
	}
}

func (r *PostgresImageRepository) ListImages(ctx context.Context, filter domain.ImageFilter) ([]domain.ImageRecord, error) {
	query := `SELECT id, property_id, COALESCE(s3_key, ''), COALESCE(url, '') FROM ` + r.quoted
	var args []any
	if filter.PropertyID != nil {
		query += ` WHERE property_id = $1`
		args = append(args, *filter.PropertyID)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ImageRecord, error) {
		var rec domain.ImageRecord
		err := row.Scan(&rec.ID, &rec.PropertyID, &rec.StorageKey, &rec.PublicURL)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan images: %w", err)
	}
	return records, nil
}

func (r *PostgresImageRepository) UpdateImageKey(ctx context.Context, record domain.ImageRecord) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE `+r.quoted+` SET s3_key = $2, url = $3 WHERE id = $1`,
		record.ID, record.StorageKey, record.PublicURL)
	if err != nil {
		return fmt.Errorf("update image %d: %w", record.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", apperrors.ErrRecordNotFound, record.ID)
	}
	return nil
}

func (r *PostgresImageRepository) BulkInsertImages(ctx context.Context, records []domain.ImageRecord) (int64, error) {
	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{r.table},
		[]string{"id", "property_id", "s3_key", "url"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{rec.ID, rec.PropertyID, rec.StorageKey, rec.PublicURL}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("bulk insert images: %w", err)
	}
	return n, nil
}
