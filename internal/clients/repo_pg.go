package clients

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const clientColumns = `id, person_type, first_name, paternal_surname, maternal_surname, legal_name,
legal_representative, tax_id, birth_date, incorporation_date, email, phone, address, city, state,
country, created_at, updated_at`

const uniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) Create(ctx context.Context, c Client) error {
	const query = `
INSERT INTO clients (` + clientColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.PersonType, c.FirstName, c.PaternalSurname, c.MaternalSurname, c.LegalName,
		c.LegalRepresentative, c.TaxID, nullableTime(c.BirthDate), nullableTime(c.IncorporationDate),
		c.Email, c.Phone, c.Address, c.City, c.State, c.Country, c.CreatedAt, c.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Client, error) {
	return scanClient(r.DB.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

func (r *PGRepo) GetByTaxID(ctx context.Context, taxID string) (Client, error) {
	return scanClient(r.DB.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE upper(tax_id) = upper($1)`, taxID))
}

func (r *PGRepo) List(ctx context.Context, filter Filter) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	var args []any
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		query += ` WHERE concat_ws(' ', first_name, paternal_surname, maternal_surname, legal_name) ILIKE $1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, c Client) error {
	const query = `
UPDATE clients SET
  person_type = $2, first_name = $3, paternal_surname = $4, maternal_surname = $5, legal_name = $6,
  legal_representative = $7, tax_id = $8, birth_date = $9, incorporation_date = $10, email = $11,
  phone = $12, address = $13, city = $14, state = $15, country = $16, updated_at = $17
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		c.ID, c.PersonType, c.FirstName, c.PaternalSurname, c.MaternalSurname, c.LegalName,
		c.LegalRepresentative, c.TaxID, nullableTime(c.BirthDate), nullableTime(c.IncorporationDate),
		c.Email, c.Phone, c.Address, c.City, c.State, c.Country, c.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireAffected(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanClient(row rowScanner) (Client, error) {
	var (
		c                 Client
		birthDate         sql.NullTime
		incorporationDate sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.PersonType, &c.FirstName, &c.PaternalSurname, &c.MaternalSurname, &c.LegalName,
		&c.LegalRepresentative, &c.TaxID, &birthDate, &incorporationDate, &c.Email, &c.Phone,
		&c.Address, &c.City, &c.State, &c.Country, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	if birthDate.Valid {
		c.BirthDate = &birthDate.Time
	}
	if incorporationDate.Valid {
		c.IncorporationDate = &incorporationDate.Time
	}
	return c, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrTaxIDTaken
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var _ Repo = (*PGRepo)(nil)
