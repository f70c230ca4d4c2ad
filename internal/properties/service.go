package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/geo"
	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/storage/object"
	"collateral-backend/internal/shared/telemetry"
)

// Folder is the object-store folder property photos are uploaded into.
const Folder = "properties"

// ClientChecker reports whether a client exists.
type ClientChecker interface {
	ClientExists(ctx context.Context, clientID string) (bool, error)
}

// DocumentDetacher clears the property reference of its documents.
type DocumentDetacher interface {
	DetachProperty(ctx context.Context, propertyID string) error
}

// Service contains business logic for properties.
type Service struct {
	Repo      Repo
	Store     object.BlobStore
	Clients   ClientChecker
	Documents DocumentDetacher
	Geocoder  geo.Geocoder
	Now       func() time.Time
}

// CreateInput describes a new property. Location, when set, skips geocoding.
type CreateInput struct {
	ClientID    string
	Address     string
	MarketValue float64
	Location    *geo.Point
	Photo       *object.File
}

// UpdateInput holds optional replacements. An empty ClientID detaches the client.
type UpdateInput struct {
	ClientID    *string
	Address     *string
	MarketValue *float64
	Location    *geo.Point
	Photo       *object.File
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Property, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return Property{}, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if in.MarketValue <= 0 {
		return Property{}, fmt.Errorf("%w: marketValue must be positive", ErrInvalidInput)
	}
	if in.Location != nil && !in.Location.Valid() {
		return Property{}, fmt.Errorf("%w: location out of range", ErrInvalidInput)
	}
	if in.Photo != nil {
		if err := object.CheckFile(*in.Photo); err != nil {
			return Property{}, ErrEmptyFile
		}
	}

	var clientID *string
	if id := strings.TrimSpace(in.ClientID); id != "" {
		if err := s.requireClient(ctx, id); err != nil {
			return Property{}, err
		}
		clientID = &id
	}

	location := in.Location
	if location == nil {
		loc, err := s.geocode(ctx, address)
		if err != nil {
			return Property{}, err
		}
		location = loc
	}

	var photoURL *string
	if in.Photo != nil {
		url, err := s.upload(ctx, *in.Photo)
		if err != nil {
			return Property{}, err
		}
		photoURL = &url
	}

	now := s.now()
	p := Property{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		Address:     address,
		MarketValue: in.MarketValue,
		Location:    location,
		PhotoURL:    photoURL,
		Status:      approval.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		if photoURL != nil {
			s.compensate(ctx, *photoURL, p.ID)
		}
		return Property{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	telemetry.Info("property.created", map[string]any{"property_id": p.ID})
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (Property, error) {
	if strings.TrimSpace(id) == "" {
		return Property{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Property, error) {
	if filter.MinValue != nil && filter.MaxValue != nil && *filter.MinValue > *filter.MaxValue {
		return nil, fmt.Errorf("%w: minValue is greater than maxValue", ErrInvalidInput)
	}
	return s.Repo.List(ctx, filter)
}

// Update applies the given changes. A new photo is stored before the old
// one is removed.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Property, error) {
	var patch Patch
	if in.Address != nil {
		address := strings.TrimSpace(*in.Address)
		if address == "" {
			return Property{}, fmt.Errorf("%w: address is required", ErrInvalidInput)
		}
		patch.Address = &address
	}
	if in.MarketValue != nil {
		if *in.MarketValue <= 0 {
			return Property{}, fmt.Errorf("%w: marketValue must be positive", ErrInvalidInput)
		}
		patch.MarketValue = in.MarketValue
	}
	if in.Location != nil {
		if !in.Location.Valid() {
			return Property{}, fmt.Errorf("%w: location out of range", ErrInvalidInput)
		}
		patch.Location = in.Location
	}
	if in.Photo != nil {
		if err := object.CheckFile(*in.Photo); err != nil {
			return Property{}, ErrEmptyFile
		}
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return Property{}, err
	}

	if in.ClientID != nil {
		clientID := strings.TrimSpace(*in.ClientID)
		if clientID == "" {
			patch.ClearClient = true
		} else {
			if err := s.requireClient(ctx, clientID); err != nil {
				return Property{}, err
			}
			patch.ClientID = &clientID
		}
	}

	if patch.Address != nil && *patch.Address != existing.Address && patch.Location == nil {
		loc, err := s.geocode(ctx, *patch.Address)
		if err != nil {
			return Property{}, err
		}
		if loc == nil {
			patch.ClearLocation = true
		} else {
			patch.Location = loc
		}
	}

	var newPhoto string
	if in.Photo != nil {
		newPhoto, err = s.upload(ctx, *in.Photo)
		if err != nil {
			return Property{}, err
		}
		patch.PhotoURL = &newPhoto
	}

	patch.UpdatedAt = s.now()
	updated, err := s.Repo.Update(ctx, existing.ID, patch)
	if err != nil {
		if newPhoto != "" {
			s.compensate(ctx, newPhoto, existing.ID)
		}
		if errors.Is(err, ErrNotFound) {
			return Property{}, ErrNotFound
		}
		return Property{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if newPhoto != "" && existing.PhotoURL != nil {
		if err := s.Store.Delete(ctx, *existing.PhotoURL); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Error("property.old_photo_delete_failed", map[string]any{
				"property_id": existing.ID,
				"url":         *existing.PhotoURL,
				"error":       err.Error(),
			})
		}
	}
	return updated, nil
}

// Delete removes the photo, detaches documents and deletes the row. A
// photo that is already gone is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.PhotoURL != nil {
		if err := s.Store.Delete(ctx, *p.PhotoURL); err != nil && !errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
	}
	if s.Documents != nil {
		if err := s.Documents.DetachProperty(ctx, p.ID); err != nil {
			return fmt.Errorf("%w: detach documents: %v", ErrPersistence, err)
		}
	}
	if err := s.Repo.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	telemetry.Info("property.deleted", map[string]any{"property_id": p.ID})
	return nil
}

// PropertyExists reports whether a property with id exists.
func (s *Service) PropertyExists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) requireClient(ctx context.Context, clientID string) error {
	if s.Clients == nil {
		return nil
	}
	ok, err := s.Clients.ClientExists(ctx, clientID)
	if err != nil {
		return fmt.Errorf("check client: %w", err)
	}
	if !ok {
		return ErrClientNotFound
	}
	return nil
}

// geocode returns nil without error when no geocoder is configured.
func (s *Service) geocode(ctx context.Context, address string) (*geo.Point, error) {
	if s.Geocoder == nil {
		return nil, nil
	}
	p, err := s.Geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeocoding, err)
	}
	return &p, nil
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

func (s *Service) compensate(ctx context.Context, url, propertyID string) {
	err := s.Store.Delete(ctx, url)
	switch {
	case err == nil:
		metrics.CompensatingDeletes.WithLabelValues("deleted").Inc()
	case errors.Is(err, object.ErrNotFound):
		metrics.CompensatingDeletes.WithLabelValues("missing").Inc()
	default:
		metrics.CompensatingDeletes.WithLabelValues("failed").Inc()
		telemetry.Error("property.compensating_delete_failed", map[string]any{
			"property_id": propertyID,
			"url":         url,
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
