// Package metrics declares the Prometheus collectors for the media pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts accepted and rejected uploads by asset kind.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campfolio",
			Subsystem: "media",
			Name:      "uploads_total",
			Help:      "Total media uploads",
		},
		[]string{"kind", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campfolio",
			Subsystem: "media",
			Name:      "upload_bytes_total",
			Help:      "Total bytes written by uploads",
		},
		[]string{"backend"},
	)

	// StorageOperationsTotal counts put/delete calls per backend.
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campfolio",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Storage backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campfolio",
			Subsystem: "media",
			Name:      "thumbnails_total",
			Help:      "Thumbnail derivations by outcome",
		},
		[]string{"size", "status"},
	)

	ReconcileDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campfolio",
			Subsystem: "reconcile",
			Name:      "deleted_files_total",
			Help:      "Orphan files removed from local storage",
		},
	)

	ReconcileErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campfolio",
			Subsystem: "reconcile",
			Name:      "errors_total",
			Help:      "Per-file errors during orphan reconciliation",
		},
	)
)

// Status maps an error to the label used by the counters above.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
