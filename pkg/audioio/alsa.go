//go:build linux

package audioio

import (
	"fmt"
	"log/slog"
)

// newALSASource captures from an ALSA device via arecord.
func newALSASource(cfg Config, logger *slog.Logger) (Source, error) {
	device := cfg.Device
	if device == "" {
		device = "default"
	}

	argv := []string{
		"arecord", "-q",
		"-D", device,
		"-f", "S16_LE",
		"-r", fmt.Sprint(cfg.SampleRate),
		"-c", fmt.Sprint(cfg.Channels),
		"-t", "raw",
	}

	return newPipeSource(cfg, logger, "alsa", argv), nil
}

// newALSASink plays to an ALSA device via aplay.
func newALSASink(cfg Config, logger *slog.Logger) (Sink, error) {
	device := cfg.Device
	if device == "" {
		device = "default"
	}

	argv := []string{
		"aplay", "-q",
		"-D", device,
		"-f", "S16_LE",
		"-r", fmt.Sprint(cfg.SampleRate),
		"-c", fmt.Sprint(cfg.Channels),
		"-t", "raw",
	}

	return newPipeSink(cfg, logger, "alsa", argv), nil
}
