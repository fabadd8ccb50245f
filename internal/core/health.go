package core

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the total time spent probing dependencies.
const healthCheckTimeout = 2 * time.Second

// HealthProbe is a health check against a critical dependency.
type HealthProbe interface {
	// Name identifies the probe in the response body (e.g. "database").
	Name() string

	// Check pings the subsystem. It must respect the context deadline.
	Check(ctx context.Context) error
}

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs all registered probes sequentially under a shared
// 2-second deadline. Returns 200 if every probe reports healthy, 503
// otherwise. The endpoint is public and mounted outside the route prefix so
// load balancers can reach it regardless of ROUTE_PREFIX.
//
// The demo has a single dependency (Postgres), so probes run sequentially;
// the shared deadline still bounds the worst case.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	components := make(map[string]componentStatus, len(s.HealthProbes))
	allHealthy := true

	for _, probe := range s.HealthProbes {
		if err := probe.Check(ctx); err != nil {
			allHealthy = false
			components[probe.Name()] = componentStatus{Status: "unhealthy", Message: err.Error()}
		} else {
			components[probe.Name()] = componentStatus{Status: "healthy"}
		}
	}

	resp := healthResponse{Components: components}
	if allHealthy {
		resp.Status = "healthy"
		JSON(w, r, http.StatusOK, resp)
		return
	}
	resp.Status = "unhealthy"
	JSON(w, r, http.StatusServiceUnavailable, resp)
}
