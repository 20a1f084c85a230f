package metrics

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	muserr "github.com/security-union/codemuse/internal/errors"
)

// NewRegistry creates a new Prometheus registry with metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	return reg, m
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for the node_exporter textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return muserr.Wrap(muserr.ErrCodeDirectoryFailed, "failed to create metrics directory", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return muserr.NewFileWriteError(path, err)
	}
	return nil
}
