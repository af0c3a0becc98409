package app

import (
	"context"

	"rawlower/internal/shared/observability"
)

// HealthService answers liveness probes from the observability server.
type HealthService struct {
	app *App
}

func (a *App) Health() *HealthService {
	return &HealthService{app: a}
}

func (h *HealthService) Check(ctx context.Context) observability.HealthStatus {
	if h == nil || h.app == nil {
		return observability.HealthStatus{Status: "down"}
	}
	return observability.HealthStatus{
		Status:       "up",
		FilesTracked: len(h.app.TrackedPaths()),
	}
}
