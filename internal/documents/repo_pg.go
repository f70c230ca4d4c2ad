package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"collateral-backend/internal/approval"
)

const documentColumns = `id, property_id, type, url, status, created_at, updated_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, property_id, type, url, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		nullableString(doc.PropertyID),
		string(doc.Type),
		nullableString(doc.URL),
		string(doc.Status),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// List returns matching documents, oldest first.
func (r *PGRepo) List(ctx context.Context, filter Filter) ([]Document, error) {
	var (
		where []string
		args  []any
	)
	if filter.PropertyID != "" {
		args = append(args, filter.PropertyID)
		where = append(where, fmt.Sprintf("property_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, id string, patch Patch) (Document, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Type != nil {
		set("type", string(*patch.Type))
	}
	if patch.ClearURL {
		sets = append(sets, "url = NULL")
	} else if patch.URL != nil {
		set("url", *patch.URL)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set("updated_at", updatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE documents SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), documentColumns)
	return scanDocument(r.DB.QueryRowContext(ctx, query, args...))
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) DetachProperty(ctx context.Context, propertyID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE documents SET property_id = NULL, updated_at = now() WHERE property_id = $1`, propertyID)
	return err
}

func (r *PGRepo) StatusesByProperty(ctx context.Context, propertyID string) ([]approval.Status, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status FROM documents WHERE property_id = $1`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := []approval.Status{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, approval.Status(s))
	}
	return statuses, rows.Err()
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc        Document
		propertyID sql.NullString
		url        sql.NullString
		typ        string
		status     string
	)
	err := row.Scan(&doc.ID, &propertyID, &typ, &url, &status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Type = Type(typ)
	doc.Status = approval.Status(status)
	if propertyID.Valid {
		doc.PropertyID = &propertyID.String
	}
	if url.Valid {
		doc.URL = &url.String
	}
	return doc, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

var _ Repo = (*PGRepo)(nil)
