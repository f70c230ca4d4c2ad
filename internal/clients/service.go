package clients

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"collateral-backend/internal/shared/telemetry"
)

// PropertyDetacher clears the client reference of its properties.
type PropertyDetacher interface {
	DetachClient(ctx context.Context, clientID string) error
}

// Service contains business logic for clients.
type Service struct {
	Repo       Repo
	Properties PropertyDetacher
	Now        func() time.Time

	validate *validator.Validate
}

func NewService(repo Repo, properties PropertyDetacher) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Service{Repo: repo, Properties: properties, validate: v}
}

func (s *Service) Create(ctx context.Context, in Input) (Client, error) {
	in, err := s.check(in)
	if err != nil {
		return Client{}, err
	}
	now := s.now()
	c := in.apply(Client{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now})
	if err := s.Repo.Create(ctx, c); err != nil {
		return Client{}, err
	}
	telemetry.Info("client.created", map[string]any{"client_id": c.ID})
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (Client, error) {
	if strings.TrimSpace(id) == "" {
		return Client{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) GetByTaxID(ctx context.Context, taxID string) (Client, error) {
	taxID = strings.ToUpper(strings.TrimSpace(taxID))
	if taxID == "" {
		return Client{}, ErrNotFound
	}
	return s.Repo.GetByTaxID(ctx, taxID)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Client, error) {
	return s.Repo.List(ctx, filter)
}

// Update replaces every writable field of the client.
func (s *Service) Update(ctx context.Context, id string, in Input) (Client, error) {
	in, err := s.check(in)
	if err != nil {
		return Client{}, err
	}
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Client{}, err
	}
	c := in.apply(existing)
	c.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

// Delete removes the client after clearing it from its properties.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if s.Properties != nil {
		if err := s.Properties.DetachClient(ctx, id); err != nil {
			return fmt.Errorf("detach properties: %w", err)
		}
	}
	return s.Repo.Delete(ctx, id)
}

// ClientExists reports whether a client with id exists.
func (s *Service) ClientExists(ctx context.Context, id string) (bool, error) {
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

func (s *Service) check(in Input) (Input, error) {
	if s == nil || s.Repo == nil || s.validate == nil {
		return Input{}, ErrNotConfigured
	}
	in = in.normalized()
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return Input{}, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
		}
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return in, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
