// Package config provides configuration helpers for go-jarvis commands.
package config

import "os"

// Default endpoints for local development.
const (
	DefaultAPIBase  = "http://localhost:8000"
	DefaultListen   = ":8000"
	DefaultAgent    = "jarvis"
	DefaultLogLevel = "info"
)

// Client holds configuration for the terminal client.
// Flag parsing is done in cmd/jarvis/main.go; this struct is data only.
type Client struct {
	// APIBase is the dashboard API base URL (http or https).
	// The voice gateway is derived from it (ws/wss + /ws/voice).
	APIBase string

	// Agent is the agent identity the session is scoped to.
	Agent string

	// CaptureDevice is the platform-specific microphone identifier.
	CaptureDevice string

	// LogLevel controls slog verbosity.
	LogLevel string
}

// Server holds configuration for the dashboard server.
type Server struct {
	// Listen is the address the fiber app binds to.
	Listen string

	// Workspace is the root directory holding client datasets.
	Workspace string

	// FrontendURL is an extra CORS origin, if set.
	FrontendURL string

	// LogLevel controls slog verbosity.
	LogLevel string
}

// LoadClient builds a client config from the environment.
func LoadClient() Client {
	return Client{
		APIBase:       envOr("JARVIS_API", DefaultAPIBase),
		Agent:         envOr("JARVIS_AGENT", DefaultAgent),
		CaptureDevice: os.Getenv("JARVIS_MIC_DEVICE"),
		LogLevel:      envOr("JARVIS_LOG_LEVEL", DefaultLogLevel),
	}
}

// LoadServer builds a server config from the environment.
func LoadServer() Server {
	return Server{
		Listen:      envOr("JARVIS_LISTEN", DefaultListen),
		Workspace:   envOr("JARVIS_WORKSPACE", "workspace"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		LogLevel:    envOr("JARVIS_LOG_LEVEL", DefaultLogLevel),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
