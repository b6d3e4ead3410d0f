package ports

import "context"

// HealthChecker probes one dependency for GET /health. A nil error means healthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
