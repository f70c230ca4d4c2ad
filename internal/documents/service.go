package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/storage/object"
	"collateral-backend/internal/shared/telemetry"
)

// Folder is the object-store folder documents are uploaded into.
const Folder = "documents"

// PropertyChecker reports whether a property exists.
type PropertyChecker interface {
	PropertyExists(ctx context.Context, propertyID string) (bool, error)
}

// StatusReconciler recomputes a property's status from its documents.
type StatusReconciler interface {
	Reconcile(ctx context.Context, propertyID string) (approval.Result, error)
}

// Service keeps document rows and their stored files consistent.
type Service struct {
	Store      object.BlobStore
	Repo       Repo
	Properties PropertyChecker
	Reconciler StatusReconciler
	Now        func() time.Time
}

// CreateInput describes a single uploaded document.
type CreateInput struct {
	PropertyID string
	Type       string
	File       object.File
}

// UpdateInput holds optional replacements; nil means unchanged.
type UpdateInput struct {
	File   *object.File
	Type   *string
	Status *string
}

// BatchError reports which file of a batch failed.
type BatchError struct {
	Index int
	Name  string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: file %d (%s): %v", ErrProcessing, e.Index, e.Name, e.Err)
}

func (e *BatchError) Unwrap() []error {
	return []error{ErrProcessing, e.Err}
}

// Create uploads the file and records a pending document for the property.
func (s *Service) Create(ctx context.Context, in CreateInput) (Document, error) {
	typ, ok := ParseType(in.Type)
	if !ok {
		return Document{}, ErrInvalidDocumentType
	}
	if err := object.CheckFile(in.File); err != nil {
		return Document{}, ErrEmptyFile
	}
	propertyID := strings.TrimSpace(in.PropertyID)
	if propertyID == "" {
		return Document{}, ErrPropertyRequired
	}
	if err := s.requireProperty(ctx, propertyID); err != nil {
		return Document{}, err
	}

	url, err := s.upload(ctx, in.File)
	if err != nil {
		return Document{}, err
	}

	now := s.now()
	doc := Document{
		ID:         uuid.NewString(),
		PropertyID: &propertyID,
		Type:       typ,
		URL:        &url,
		Status:     approval.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.compensate(ctx, url, doc.ID)
		return Document{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.DocumentsCreated.Inc()
	telemetry.Info("document.created", map[string]any{
		"document_id": doc.ID,
		"property_id": propertyID,
		"type":        string(typ),
	})
	return doc, nil
}

// CreateBatch creates one document per file, in order. It stops at the first
// failure and returns the documents created before it together with a
// *BatchError; those documents are kept.
func (s *Service) CreateBatch(ctx context.Context, propertyID, typ string, files []object.File) ([]Document, error) {
	created := make([]Document, 0, len(files))
	for i, file := range files {
		doc, err := s.Create(ctx, CreateInput{PropertyID: propertyID, Type: typ, File: file})
		if err != nil {
			telemetry.Warn("document.batch_failed", map[string]any{
				"property_id": propertyID,
				"file_index":  i + 1,
				"created":     len(created),
				"error":       err.Error(),
			})
			return created, &BatchError{Index: i + 1, Name: file.Name, Err: err}
		}
		created = append(created, doc)
	}
	return created, nil
}

// Update replaces the file, type or status of a document and then
// reconciles its property.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Document, error) {
	var patch Patch
	if in.Type != nil {
		typ, ok := ParseType(*in.Type)
		if !ok {
			return Document{}, ErrInvalidDocumentType
		}
		patch.Type = &typ
	}
	if in.Status != nil {
		status, ok := approval.ParseStatus(*in.Status)
		if !ok {
			return Document{}, ErrInvalidStatus
		}
		patch.Status = &status
	}
	if in.File != nil {
		if err := object.CheckFile(*in.File); err != nil {
			return Document{}, ErrEmptyFile
		}
	}

	doc, err := s.get(ctx, id)
	if err != nil {
		return Document{}, err
	}

	var newURL string
	if in.File != nil {
		if doc.URL != nil {
			if err := s.Store.Delete(ctx, *doc.URL); err != nil && !errors.Is(err, object.ErrNotFound) {
				return Document{}, fmt.Errorf("%w: delete previous file: %v", ErrStore, err)
			}
		}
		newURL, err = s.upload(ctx, *in.File)
		if err != nil {
			if doc.URL != nil {
				s.clearURL(ctx, doc.ID)
			}
			return Document{}, err
		}
		patch.URL = &newURL
	}

	patch.UpdatedAt = s.now()
	updated, err := s.Repo.Update(ctx, doc.ID, patch)
	if err != nil {
		if newURL != "" {
			s.compensate(ctx, newURL, doc.ID)
			s.clearURL(ctx, doc.ID)
		}
		if errors.Is(err, ErrNotFound) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if updated.PropertyID != nil && s.Reconciler != nil {
		if _, err := s.Reconciler.Reconcile(ctx, *updated.PropertyID); err != nil {
			return updated, fmt.Errorf("%w: %v", ErrReconcile, err)
		}
	}
	return updated, nil
}

// Delete removes the stored file and the row. A file that is already gone
// is not an error. The property's status is not recomputed.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if doc.URL != nil {
		if err := s.Store.Delete(ctx, *doc.URL); err != nil && !errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
	}
	if err := s.Repo.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	telemetry.Info("document.deleted", map[string]any{"document_id": doc.ID})
	return nil
}

// Get returns a single document.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	return s.get(ctx, id)
}

// ListByProperty returns the documents attached to a property.
func (s *Service) ListByProperty(ctx context.Context, propertyID string) ([]Document, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return nil, ErrPropertyRequired
	}
	if err := s.requireProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	docs, err := s.Repo.List(ctx, Filter{PropertyID: propertyID})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *Service) get(ctx context.Context, id string) (Document, error) {
	if strings.TrimSpace(id) == "" {
		return Document{}, ErrDocumentNotFound
	}
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

func (s *Service) requireProperty(ctx context.Context, propertyID string) error {
	if s.Properties == nil {
		return nil
	}
	ok, err := s.Properties.PropertyExists(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("check property: %w", err)
	}
	if !ok {
		return ErrPropertyNotFound
	}
	return nil
}

func (s *Service) upload(ctx context.Context, file object.File) (string, error) {
	url, err := s.Store.Upload(ctx, Folder, file)
	if err != nil {
		if errors.Is(err, object.ErrEmptyFile) {
			return "", ErrEmptyFile
		}
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	return url, nil
}

// compensate removes a blob whose row could not be written.
func (s *Service) compensate(ctx context.Context, url, documentID string) {
	err := s.Store.Delete(ctx, url)
	switch {
	case err == nil:
		metrics.CompensatingDeletes.WithLabelValues("deleted").Inc()
	case errors.Is(err, object.ErrNotFound):
		metrics.CompensatingDeletes.WithLabelValues("missing").Inc()
	default:
		metrics.CompensatingDeletes.WithLabelValues("failed").Inc()
		telemetry.Error("document.compensating_delete_failed", map[string]any{
			"document_id": documentID,
			"url":         url,
			"error":       err.Error(),
		})
	}
}

// clearURL drops the url of a document whose file is gone.
func (s *Service) clearURL(ctx context.Context, documentID string) {
	_, err := s.Repo.Update(ctx, documentID, Patch{ClearURL: true, UpdatedAt: s.now()})
	if err != nil {
		telemetry.Error("document.clear_url_failed", map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
