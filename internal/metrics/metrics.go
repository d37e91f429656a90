// Package metrics exposes Prometheus counters for numbering and issuance.
package metrics

import (
	"errors"
	"net/http"

	"github.com/drmeng/vds/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for issuance attempts.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

var (
	// TransmittalsCreated counts committed transmittals per numbering source.
	TransmittalsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vds",
		Name:      "transmittals_created_total",
		Help:      "Transmittals created, by numbering source.",
	}, []string{"source"})

	// RevisionIssues counts issuance attempts per Outcome label.
	RevisionIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vds",
		Name:      "revision_issues_total",
		Help:      "Revision issuance attempts, by outcome.",
	}, []string{"outcome"})
)

// Outcome classifies an operation error into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, models.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, models.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, models.ErrInvalid):
		return OutcomeInvalid
	}
	return OutcomeError
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
