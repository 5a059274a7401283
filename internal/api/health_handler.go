package api

import (
	"context"
	"net/http"
	"time"

	"github.com/qaforge/qaforge/internal/api/shared"
)

// Pinger is the subset of *sql.DB the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler over the given database.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// healthStatus is the data payload of the health endpoint.
type healthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Check handles GET /health. The endpoint is public and always wrapped in the
// standard envelope; an unreachable database turns the overall status to
// "unhealthy" but still answers 200 so load balancers can read the detail.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services:  map[string]string{"database": "healthy"},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Status = "unhealthy"
		status.Services["database"] = "unhealthy"
	}

	shared.RespondOK(w, r, status, "")
}
