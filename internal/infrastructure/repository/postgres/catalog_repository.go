package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

// CatalogRepository reads the structured car catalog.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListRecords(ctx context.Context) ([]domain.CatalogRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, price, rating, specs, images, grounding_text
FROM catalog_records
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CatalogRecord, 0, 64)
	for rows.Next() {
		var (
			record    domain.CatalogRecord
			specsRaw  []byte
			imagesRaw []byte
		)
		if err := rows.Scan(&record.ID, &record.Name, &record.Price, &record.Rating, &specsRaw, &imagesRaw, &record.GroundingText); err != nil {
			return nil, fmt.Errorf("scan catalog record: %w", err)
		}
		if len(specsRaw) > 0 {
			if err := json.Unmarshal(specsRaw, &record.Specs); err != nil {
				return nil, fmt.Errorf("unmarshal specs for %s: %w", record.ID, err)
			}
		}
		if len(imagesRaw) > 0 {
			if err := json.Unmarshal(imagesRaw, &record.Images); err != nil {
				return nil, fmt.Errorf("unmarshal images for %s: %w", record.ID, err)
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return out, nil
}

// UpsertRecords writes records in one transaction, replacing by id.
func (r *CatalogRepository) UpsertRecords(ctx context.Context, records []domain.CatalogRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, record := range records {
		specsJSON, err := json.Marshal(nonNilSpecs(record.Specs))
		if err != nil {
			return fmt.Errorf("marshal specs: %w", err)
		}
		imagesJSON, err := json.Marshal(nonNilImages(record.Images))
		if err != nil {
			return fmt.Errorf("marshal images: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO catalog_records (id, name, price, rating, specs, images, grounding_text)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	rating = EXCLUDED.rating,
	specs = EXCLUDED.specs,
	images = EXCLUDED.images,
	grounding_text = EXCLUDED.grounding_text
`, record.ID, record.Name, record.Price, record.Rating, specsJSON, imagesJSON, record.GroundingText)
		if err != nil {
			return fmt.Errorf("upsert catalog record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

func nonNilSpecs(specs map[string]string) map[string]string {
	if specs == nil {
		return map[string]string{}
	}
	return specs
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
