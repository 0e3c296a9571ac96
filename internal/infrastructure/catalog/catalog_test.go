package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestXLSXStoreListRecords(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"ID", "Name", "Price", "Rating", "Fuel", "Images", "Grounding_Text"},
		{"mg-zs", "MG ZS 2024", "1,050,000 EGP", "4.5", "petrol", "a.jpg, b.jpg", "MG ZS 2024 Luxury"},
		{"", "Kia Picanto", "650000", "", "petrol", "", ""},
	})

	records, err := NewXLSXStore(path, "").ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	first := records[0]
	if first.ID != "mg-zs" || first.Price != 1050000 || first.Rating != 4.5 {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.Specs["fuel"] != "petrol" || len(first.Images) != 2 || first.GroundingText != "MG ZS 2024 Luxury" {
		t.Fatalf("unexpected first record details %+v", first)
	}
	if records[1].ID != "2" {
		t.Fatalf("expected positional id for second record, got %q", records[1].ID)
	}
}

func TestParseRowsRequiresNameColumn(t *testing.T) {
	_, err := parseRows([][]string{{"id", "price"}, {"1", "100"}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"1,050,000":     1050000,
		"650 000 EGP":   650000,
		"4.5":           4.5,
		"EGP 1_200_000": 1200000,
	}
	for raw, want := range cases {
		got, err := parseNumber(raw)
		if err != nil {
			t.Fatalf("parseNumber(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("parseNumber(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := parseNumber("n/a"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

type countingStore struct {
	calls   atomic.Int32
	err     error
	records []domain.CatalogRecord
	gate    chan struct{}
}

func (s *countingStore) ListRecords(context.Context) ([]domain.CatalogRecord, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func TestCachedStoreServesSnapshotWithinTTL(t *testing.T) {
	upstream := &countingStore{records: []domain.CatalogRecord{{ID: "1", Name: "MG ZS"}}}
	now := time.Unix(1000, 0)
	cache := NewCachedStore(upstream, time.Minute)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := cache.ListRecords(context.Background()); err != nil {
			t.Fatalf("ListRecords() error = %v", err)
		}
	}
	if upstream.calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", upstream.calls.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.ListRecords(context.Background()); err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if upstream.calls.Load() != 2 {
		t.Fatalf("expected refresh after ttl, got %d calls", upstream.calls.Load())
	}
}

func TestCachedStoreServesStaleOnRefreshError(t *testing.T) {
	upstream := &countingStore{records: []domain.CatalogRecord{{ID: "1", Name: "MG ZS"}}}
	now := time.Unix(1000, 0)
	cache := NewCachedStore(upstream, time.Minute)
	cache.now = func() time.Time { return now }

	if _, err := cache.ListRecords(context.Background()); err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	upstream.err = errors.New("db down")
	now = now.Add(2 * time.Minute)

	records, err := cache.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("expected stale snapshot, got error %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected stale record, got %+v", records)
	}
}

func TestCachedStoreCoalescesConcurrentLoads(t *testing.T) {
	upstream := &countingStore{
		records: []domain.CatalogRecord{{ID: "1", Name: "MG ZS"}},
		gate:    make(chan struct{}),
	}
	cache := NewCachedStore(upstream, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.ListRecords(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(upstream.gate)
	wg.Wait()

	if upstream.calls.Load() > 2 {
		t.Fatalf("expected coalesced upstream loads, got %d", upstream.calls.Load())
	}
}

func TestCachedStoreInvalidateForcesReload(t *testing.T) {
	upstream := &countingStore{records: []domain.CatalogRecord{{ID: "1", Name: "MG ZS"}}}
	now := time.Unix(1000, 0)
	cache := NewCachedStore(upstream, time.Hour)
	cache.now = func() time.Time { return now }

	if _, err := cache.ListRecords(context.Background()); err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	upstream.records = []domain.CatalogRecord{{ID: "1", Name: "MG ZS"}, {ID: "2", Name: "Kia Picanto"}}
	cache.Invalidate()

	records, err := cache.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if upstream.calls.Load() != 2 || len(records) != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls and %+v", upstream.calls.Load(), records)
	}

	upstream.err = errors.New("db down")
	cache.Invalidate()
	records, err = cache.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("expected stale snapshot after failed reload, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected last good snapshot, got %+v", records)
	}
}
