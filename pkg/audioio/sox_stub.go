//go:build !darwin

package audioio

import (
	"fmt"
	"log/slog"
)

// newSoXSource returns an error on non-Darwin platforms.
func newSoXSource(cfg Config, logger *slog.Logger) (Source, error) {
	return nil, fmt.Errorf("SoX backend is only wired up on macOS")
}

// newSoXSink returns an error on non-Darwin platforms.
func newSoXSink(cfg Config, logger *slog.Logger) (Sink, error) {
	return nil, fmt.Errorf("SoX backend is only wired up on macOS")
}
