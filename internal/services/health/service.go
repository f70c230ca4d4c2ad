package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB      Pinger
	Timeout time.Duration
}

// NewService constructs a new health service. db may be nil when running on memory repositories.
func NewService(db Pinger) *Service {
	return &Service{DB: db, Timeout: 2 * time.Second}
}

// Status reports overall health and the state of the database.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	if s.DB == nil {
		return map[string]any{"ok": true, "database": "memory"}, true
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return map[string]any{"ok": false, "database": "down"}, false
	}
	return map[string]any{"ok": true, "database": "up"}, true
}
