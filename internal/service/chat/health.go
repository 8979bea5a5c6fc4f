package chat

import (
	"context"
	"log"
)

// Health reports per-dependency status for the detailed endpoint.
type Health struct {
	Healthy      bool            `json:"healthy"`
	Dependencies map[string]bool `json:"dependencies"`
}

// CheckHealth probes each dependency without touching the domain model.
func (s *Service) CheckHealth(ctx context.Context) Health {
	deps := map[string]bool{
		"store":     true,
		"retrieval": s.provider.Available(),
		"generator": s.generator != nil && s.generator.Ready(),
	}

	if err := s.store.Ping(ctx); err != nil {
		log.Printf("[chat] store health check failed: %v", err)
		deps["store"] = false
	}

	healthy := true
	for _, ok := range deps {
		healthy = healthy && ok
	}
	return Health{Healthy: healthy, Dependencies: deps}
}
