package web

import (
	"net/http"
)

// Collector renders one category of Prometheus text-format metrics.
// Resource_monitoring/collector.rs in the original is the intended future
// implementation; none ships here (scraping itself is out of scope), but
// the route and the seam to plug one in do.
type Collector interface {
	Collect(category string) ([]byte, error)
}

// metricsHandler returns a handler for one of the four named categories
// (hosts, libvirt, android, docker), deferring to s.Metrics if one is
// configured and otherwise reporting the endpoint as present but unwired.
func (s *Server) metricsHandler(category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Metrics == nil {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			w.WriteHeader(http.StatusOK)
			return
		}

		body, err := s.Metrics.Collect(category)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write(body)
	}
}
