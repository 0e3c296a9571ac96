package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func TestListChunksPagesAndDecodesMetadata(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	rows := sqlmock.NewRows([]string{"chunk_id", "chunk_text", "chunk_metadata", "chunk_order"}).
		AddRow(int64(11), "MG ZS 2024", []byte(`{"page":2,"source":"cars.pdf"}`), 1).
		AddRow(int64(12), "Kia Picanto", []byte(`{}`), 2)
	mock.ExpectQuery("SELECT chunk_id, chunk_text, chunk_metadata, chunk_order").
		WithArgs("p1", 2, 2).
		WillReturnRows(rows)

	chunks, err := NewChunkRepository(db).ListChunks(context.Background(), "p1", 2, 2)
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "11" || chunks[0].Page != 2 || chunks[0].Source != "cars.pdf" || chunks[0].ProjectID != "p1" {
		t.Fatalf("unexpected first chunk %+v", chunks[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecordsDecodesJSONColumns(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "name", "price", "rating", "specs", "images", "grounding_text"}).
		AddRow("1", "MG ZS 2024", 1050000.0, 4.5, []byte(`{"fuel":"petrol"}`), []byte(`["a.jpg","b.jpg"]`), "MG ZS 2024 Luxury")
	mock.ExpectQuery("SELECT id, name, price, rating, specs, images, grounding_text").
		WillReturnRows(rows)

	records, err := NewCatalogRepository(db).ListRecords(context.Background())
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Name != "MG ZS 2024" || got.Price != 1050000 || got.Specs["fuel"] != "petrol" || len(got.Images) != 2 {
		t.Fatalf("unexpected record %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertRecordsRollsBackOnError(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO catalog_records").
		WithArgs("1", "MG ZS", 1.0, 0.0, []byte(`{}`), []byte(`[]`), "").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := NewCatalogRepository(db).UpsertRecords(context.Background(), []domain.CatalogRecord{{ID: "1", Name: "MG ZS", Price: 1}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS data_chunks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
