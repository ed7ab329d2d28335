//go:build darwin

package audioio

import (
	"fmt"
	"log/slog"
)

// newSoXSource captures from the system default microphone via sox rec.
// Used for development on Mac.
func newSoXSource(cfg Config, logger *slog.Logger) (Source, error) {
	argv := []string{
		"rec", "-q",
		"-t", "raw",
		"-b", "16",
		"-e", "signed-integer",
		"-r", fmt.Sprint(cfg.SampleRate),
		"-c", fmt.Sprint(cfg.Channels),
		"-", // raw PCM to stdout
	}

	return newPipeSource(cfg, logger, "sox", argv), nil
}

// newSoXSink plays to the system default output via sox play.
func newSoXSink(cfg Config, logger *slog.Logger) (Sink, error) {
	argv := []string{
		"play", "-q",
		"-t", "raw",
		"-b", "16",
		"-e", "signed-integer",
		"-r", fmt.Sprint(cfg.SampleRate),
		"-c", fmt.Sprint(cfg.Channels),
		"-", // raw PCM from stdin
	}

	return newPipeSink(cfg, logger, "sox", argv), nil
}
