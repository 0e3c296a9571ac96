package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

const (
	columnID            = "id"
	columnName          = "name"
	columnPrice         = "price"
	columnRating        = "rating"
	columnImages        = "images"
	columnGroundingText = "grounding_text"
)

// XLSXStore reads catalog records from the first (or named) sheet of a workbook.
// The header row names the columns; unknown columns become specs.
type XLSXStore struct {
	path  string
	sheet string
}

func NewXLSXStore(path, sheet string) *XLSXStore {
	return &XLSXStore{path: strings.TrimSpace(path), sheet: strings.TrimSpace(sheet)}
}

func (s *XLSXStore) ListRecords(ctx context.Context) ([]domain.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read catalog sheet %q: %w", sheet, err)
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) ([]domain.CatalogRecord, error) {
	if len(rows) == 0 {
		return []domain.CatalogRecord{}, nil
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	if indexOf(header, columnName) < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse catalog", fmt.Errorf("missing %q column", columnName))
	}

	out := make([]domain.CatalogRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		record := domain.CatalogRecord{Specs: map[string]string{}}
		for col, key := range header {
			if key == "" || col >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[col])
			if value == "" {
				continue
			}
			switch key {
			case columnID:
				record.ID = value
			case columnName:
				record.Name = value
			case columnPrice:
				price, err := parseNumber(value)
				if err != nil {
					return nil, fmt.Errorf("row %d price: %w", i+2, err)
				}
				record.Price = price
			case columnRating:
				rating, err := parseNumber(value)
				if err != nil {
					return nil, fmt.Errorf("row %d rating: %w", i+2, err)
				}
				record.Rating = rating
			case columnImages:
				record.Images = splitList(value)
			case columnGroundingText:
				record.GroundingText = value
			default:
				record.Specs[key] = value
			}
		}
		if record.Name == "" {
			continue
		}
		if record.ID == "" {
			record.ID = strconv.Itoa(i + 1)
		}
		out = append(out, record)
	}
	return out, nil
}

// parseNumber accepts "1,050,000", "1 050 000 EGP" and plain decimals.
func parseNumber(raw string) (float64, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',' || r == ' ' || r == '_':
		default:
			if b.Len() > 0 {
				return strconv.ParseFloat(b.String(), 64)
			}
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", raw)
	}
	return strconv.ParseFloat(b.String(), 64)
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
