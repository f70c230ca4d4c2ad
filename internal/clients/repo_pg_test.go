package clients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectExec("INSERT INTO clients").WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), Client{ID: "c1", PersonType: PersonIndividual, TaxID: "LOPA850412AB1", CreatedAt: time.Now()})
	if !errors.Is(err, ErrTaxIDTaken) {
		t.Fatalf("expected ErrTaxIDTaken, got %v", err)
	}
}

func TestPGRepoGetByTaxID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	now := time.Now().UTC()
	cols := []string{"id", "person_type", "first_name", "paternal_surname", "maternal_surname", "legal_name",
		"legal_representative", "tax_id", "birth_date", "incorporation_date", "email", "phone", "address",
		"city", "state", "country", "created_at", "updated_at"}
	mock.ExpectQuery("FROM clients WHERE upper\\(tax_id\\) = upper\\(\\$1\\)").
		WithArgs("ACM010101AB1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"c1", "organization", "", "", "", "Acme SA", "Juan Pérez", "ACM010101AB1", nil, now,
			"", "", "", "", "", "MX", now, now,
		))

	c, err := repo.GetByTaxID(context.Background(), "ACM010101AB1")
	if err != nil {
		t.Fatalf("GetByTaxID: %v", err)
	}
	if c.LegalName != "Acme SA" || c.BirthDate != nil || c.IncorporationDate == nil {
		t.Fatalf("unexpected client %+v", c)
	}
}
