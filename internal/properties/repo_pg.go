package properties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/geo"
)

const propertyColumns = `id, client_id, address, market_value::float8, lat, lon, photo_url, status, created_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) Create(ctx context.Context, p Property) error {
	const query = `
INSERT INTO properties (id, client_id, address, market_value, lat, lon, photo_url, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	lat, lon := locationArgs(p.Location)
	_, err := r.DB.ExecContext(ctx, query,
		p.ID,
		nullableString(p.ClientID),
		p.Address,
		p.MarketValue,
		lat,
		lon,
		nullableString(p.PhotoURL),
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Property, error) {
	return scanProperty(r.DB.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
}

func (r *PGRepo) List(ctx context.Context, filter Filter) ([]Property, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ClientID != "" {
		where = append(where, "client_id = "+arg(filter.ClientID))
	}
	if filter.ClientIDs != nil {
		where = append(where, "client_id = ANY("+arg(filter.ClientIDs)+")")
	}
	if s := strings.TrimSpace(filter.AddressContains); s != "" {
		where = append(where, "address ILIKE "+arg("%"+s+"%"))
	}
	if filter.MinValue != nil {
		where = append(where, "market_value >= "+arg(*filter.MinValue))
	}
	if filter.MaxValue != nil {
		where = append(where, "market_value <= "+arg(*filter.MaxValue))
	}
	if filter.HasLocation {
		where = append(where, "lat IS NOT NULL AND lon IS NOT NULL")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}

	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, id string, patch Patch) (Property, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.ClearClient {
		sets = append(sets, "client_id = NULL")
	} else if patch.ClientID != nil {
		set("client_id", *patch.ClientID)
	}
	if patch.Address != nil {
		set("address", *patch.Address)
	}
	if patch.MarketValue != nil {
		set("market_value", *patch.MarketValue)
	}
	if patch.ClearLocation {
		sets = append(sets, "lat = NULL", "lon = NULL")
	} else if patch.Location != nil {
		set("lat", patch.Location.Lat)
		set("lon", patch.Location.Lon)
	}
	if patch.ClearPhoto {
		sets = append(sets, "photo_url = NULL")
	} else if patch.PhotoURL != nil {
		set("photo_url", *patch.PhotoURL)
	}
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set("updated_at", updatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE properties SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), propertyColumns)
	return scanProperty(r.DB.QueryRowContext(ctx, query, args...))
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) GetStatus(ctx context.Context, id string) (approval.Status, error) {
	var status string
	err := r.DB.QueryRowContext(ctx, `SELECT status FROM properties WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return approval.Status(status), nil
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status approval.Status) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE properties SET status = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *PGRepo) DetachClient(ctx context.Context, clientID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE properties SET client_id = NULL, updated_at = now() WHERE client_id = $1`, clientID)
	return err
}

func scanProperty(row rowScanner) (Property, error) {
	var (
		p        Property
		clientID sql.NullString
		lat, lon sql.NullFloat64
		photoURL sql.NullString
		status   string
	)
	err := row.Scan(&p.ID, &clientID, &p.Address, &p.MarketValue, &lat, &lon, &photoURL, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, err
	}
	p.Status = approval.Status(status)
	if clientID.Valid {
		p.ClientID = &clientID.String
	}
	if lat.Valid && lon.Valid {
		p.Location = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	if photoURL.Valid {
		p.PhotoURL = &photoURL.String
	}
	return p, nil
}

func locationArgs(loc *geo.Point) (any, any) {
	if loc == nil {
		return nil, nil
	}
	return loc.Lat, loc.Lon
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
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

var _ Repo = (*PGRepo)(nil)
