package dashboard

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "online",
		"service": "Jarvis Financial Advisor API",
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	_, err := os.Stat(s.cfg.Workspace)
	return c.JSON(fiber.Map{
		"status":           "healthy",
		"workspace":        s.cfg.Workspace,
		"workspace_exists": err == nil,
	})
}

// ChatRequest is the /api/chat request body.
type ChatRequest struct {
	Message  string `json:"message"`
	Agent    string `json:"agent"`
	ThreadID string `json:"thread_id"`
}

// ChatResponse is the /api/chat reply.
type ChatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
	Agent    string `json:"agent"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Agent == "" {
		req.Agent = AgentJarvis
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}

	reply, err := s.responder.Respond(c.Context(), req.Agent, req.Message, req.ThreadID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(ChatResponse{
		Response: reply,
		ThreadID: req.ThreadID,
		Agent:    req.Agent,
	})
}

// ClientInfo describes one client folder under the workspace.
type ClientInfo struct {
	Name      string `json:"name"`
	Folder    string `json:"folder"`
	FileCount int    `json:"file_count"`
}

func (s *Server) handleClients(c *fiber.Ctx) error {
	datasetsDir := filepath.Join(s.cfg.Workspace, "datasets")
	clients := []ClientInfo{}

	entries, err := os.ReadDir(datasetsDir)
	if err != nil {
		// Missing workspace reads as no clients, not a failure.
		return c.JSON(clients)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		fileCount := 0
		if inner, err := os.ReadDir(filepath.Join(datasetsDir, entry.Name())); err == nil {
			for _, f := range inner {
				if !f.IsDir() {
					fileCount++
				}
			}
		}

		clients = append(clients, ClientInfo{
			Name:      displayName(entry.Name()),
			Folder:    entry.Name(),
			FileCount: fileCount,
		})
	}

	sort.Slice(clients, func(i, j int) bool { return clients[i].Folder < clients[j].Folder })
	return c.JSON(clients)
}

// displayName turns "sarah_thompson" into "Sarah Thompson".
func displayName(folder string) string {
	words := strings.Split(strings.ReplaceAll(folder, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	client := c.FormValue("client")
	uploadType := c.FormValue("upload_type")
	if client == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client is required"})
	}
	if !strings.HasSuffix(file.Filename, ".txt") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only .txt files are allowed"})
	}

	subfolder := "email_archive"
	if uploadType == "transcript" {
		subfolder = "meeting_transcripts"
	}

	clientFolder := strings.ToLower(strings.ReplaceAll(client, " ", "_"))
	targetDir := filepath.Join(s.cfg.Workspace, "datasets", clientFolder, subfolder)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	target := filepath.Join(targetDir, filepath.Base(file.Filename))
	if err := c.SaveFile(file, target); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Upload failed: " + err.Error()})
	}

	s.logger.Info("file uploaded", "client", clientFolder, "type", subfolder, "name", file.Filename)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File uploaded to " + clientFolder + "/" + subfolder + "/",
		"path":    filepath.Join("datasets", clientFolder, subfolder, filepath.Base(file.Filename)),
	})
}

// CreateNotificationRequest is the POST /api/notifications body.
type CreateNotificationRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (s *Server) handleCreateNotification(c *fiber.Ctx) error {
	var req CreateNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Type == "" {
		req.Type = "action"
	}
	return c.JSON(s.notifications.add(req.Type, req.Title, req.Message))
}

func (s *Server) handleListNotifications(c *fiber.Ctx) error {
	notifications := s.notifications.list()

	// Thin stores fall back to recent workspace file activity.
	if len(notifications) < 5 {
		notifications = append(notifications, s.fileActivity(3)...)
	}

	if len(notifications) == 0 {
		notifications = append(notifications, Notification{
			ID:        uuid.NewString(),
			Type:      "success",
			Title:     "Jarvis Online",
			Message:   "I'm ready to help. Ask me anything or upload documents for analysis.",
			Timestamp: time.Now().Format(time.RFC3339),
			Read:      true,
		})
	}

	if len(notifications) > 10 {
		notifications = notifications[:10]
	}
	return c.JSON(notifications)
}

// fileActivity turns the most recently modified client documents into
// informational notifications.
func (s *Server) fileActivity(limit int) []Notification {
	datasetsDir := filepath.Join(s.cfg.Workspace, "datasets")

	type recentFile struct {
		name   string
		client string
		mtime  time.Time
	}
	var recent []recentFile

	clients, err := os.ReadDir(datasetsDir)
	if err != nil {
		return nil
	}
	for _, client := range clients {
		if !client.IsDir() {
			continue
		}
		_ = filepath.WalkDir(filepath.Join(datasetsDir, client.Name()), func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ext := filepath.Ext(path)
			if ext != ".md" && ext != ".txt" {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			recent = append(recent, recentFile{
				name:   d.Name(),
				client: client.Name(),
				mtime:  info.ModTime(),
			})
			return nil
		})
	}

	sort.Slice(recent, func(i, j int) bool { return recent[i].mtime.After(recent[j].mtime) })
	if len(recent) > limit {
		recent = recent[:limit]
	}

	out := make([]Notification, 0, len(recent))
	for _, f := range recent {
		out = append(out, Notification{
			ID:        uuid.NewString(),
			Type:      "info",
			Title:     "Document Activity: " + displayName(f.client),
			Message:   "File '" + f.name + "' was recently updated.",
			Timestamp: f.mtime.Format(time.RFC3339),
		})
	}
	return out
}

func (s *Server) handleMeetings(c *fiber.Ctx) error {
	return c.JSON(weekMeetings(time.Now()))
}

func (s *Server) handleListSuggestions(c *fiber.Ctx) error {
	return c.JSON(s.suggestions.pending())
}

// resolveSuggestionRequest is the approve body; an edited body replaces
// the draft before approval.
type resolveSuggestionRequest struct {
	EditedBody string `json:"edited_body"`
}

func (s *Server) handleApproveSuggestion(c *fiber.Ctx) error {
	var req resolveSuggestionRequest
	_ = c.BodyParser(&req) // empty body means approve as-is

	sg, ok := s.suggestions.resolve(c.Params("id"), "approved", req.EditedBody)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "suggestion not found"})
	}

	s.notifications.add("success", "Email Approved", "Draft to "+sg.ClientName+" approved and queued for sending.")
	return c.JSON(sg)
}

func (s *Server) handleRejectSuggestion(c *fiber.Ctx) error {
	sg, ok := s.suggestions.resolve(c.Params("id"), "rejected", "")
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "suggestion not found"})
	}
	return c.JSON(sg)
}

func (s *Server) handleScheduledTasks(c *fiber.Ctx) error {
	return c.JSON(s.tasks)
}
