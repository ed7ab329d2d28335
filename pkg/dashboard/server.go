// Package dashboard is the advisory dashboard service: the REST API
// the web frontend talks to, plus the websocket voice gateway that
// backs the real-time voice pipeline.
package dashboard

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// Config holds dashboard server configuration.
type Config struct {
	// Listen is the address to bind, e.g. ":8000".
	Listen string

	// Workspace is the root directory holding client datasets.
	Workspace string

	// FrontendURL is an extra allowed CORS origin, if set.
	FrontendURL string

	// Responder backs /api/chat. Defaults to the canned responder.
	Responder Responder

	// Engine backs the voice gateway. Defaults to the scripted engine.
	Engine Engine

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Server is the dashboard HTTP/websocket server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	responder Responder
	engine    Engine

	notifications *notificationStore
	suggestions   *suggestionStore
	tasks         []ScheduledTask
}

// NewServer creates the dashboard server with demo data seeded, the
// way the service comes up for development.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Responder == nil {
		cfg.Responder = CannedResponder()
	}
	if cfg.Engine == nil {
		cfg.Engine = ScriptedEngine()
	}

	s := &Server{
		cfg:           cfg,
		logger:        cfg.Logger.With("component", "dashboard.server"),
		responder:     cfg.Responder,
		engine:        cfg.Engine,
		notifications: &notificationStore{},
		suggestions:   newSuggestionStore(),
		tasks:         seedScheduledTasks(),
	}
	s.notifications.seed()
	s.suggestions.seed()

	app := fiber.New(fiber.Config{
		AppName:               "Jarvis Dashboard",
		DisableStartupMessage: true,
		BodyLimit:             20 * 1024 * 1024,
	})

	origins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowCredentials: true,
	}))

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/chat", s.handleChat)
	api.Get("/clients", s.handleClients)
	api.Post("/upload", s.handleUpload)
	api.Get("/notifications", s.handleListNotifications)
	api.Post("/notifications", s.handleCreateNotification)
	api.Get("/meetings", s.handleMeetings)
	api.Get("/email-suggestions", s.handleListSuggestions)
	api.Post("/email-suggestions/:id/approve", s.handleApproveSuggestion)
	api.Post("/email-suggestions/:id/reject", s.handleRejectSuggestion)
	api.Get("/scheduled-tasks", s.handleScheduledTasks)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/voice", websocket.New(s.handleVoice))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Notify records a notification, for wiring background jobs in.
func (s *Server) Notify(kind, title, message string) Notification {
	return s.notifications.add(kind, title, message)
}

// SuggestEmail queues a draft email for advisor review.
func (s *Server) SuggestEmail(clientName, to, subject, body string) EmailSuggestion {
	return s.suggestions.add(clientName, to, subject, body)
}

// Start blocks serving on the configured address.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening",
		"addr", s.cfg.Listen,
		"workspace", s.cfg.Workspace,
	)
	return s.app.Listen(s.cfg.Listen)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}
