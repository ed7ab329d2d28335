package dashboard

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is one dashboard alert.
type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // info, warning, action, success
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// maxNotifications bounds the in-memory store; older entries fall off.
const maxNotifications = 50

// notificationStore keeps recent notifications in memory, newest first.
type notificationStore struct {
	mu      sync.Mutex
	entries []Notification
}

func (s *notificationStore) add(kind, title, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.entries = append([]Notification{n}, s.entries...)
	if len(s.entries) > maxNotifications {
		s.entries = s.entries[:maxNotifications]
	}
	s.mu.Unlock()

	return n
}

func (s *notificationStore) list() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *notificationStore) seed() {
	demo := []struct{ kind, title, message string }{
		{"warning", "Compliance Review Required", "Emma has drafted a suitability letter for Sarah Thompson. Colin flagged it for review - missing risk warning disclosures. Please review before sending."},
		{"info", "Market Update: UK Gilts", "Bank of England held interest rates at 4.5%. This may impact Brian Potter's fixed income allocation. Consider reviewing his portfolio."},
		{"success", "Annual Review Complete", "Completed annual review for Emma Thompson. Updated risk profile and investment strategy documented. Next review scheduled for February 2027."},
		{"action", "Policy Renewal Reminder", "Brian Potter's life insurance policy renews in 14 days. Atlas found a potentially better rate with Scottish Widows. Recommend scheduling a call."},
	}
	for _, d := range demo {
		s.add(d.kind, d.title, d.message)
	}
}

// EmailSuggestion is a draft email awaiting advisor review.
type EmailSuggestion struct {
	ID         string `json:"id"`
	ClientName string `json:"client_name"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Status     string `json:"status"` // pending, approved, rejected
	CreatedAt  string `json:"created_at"`
}

type suggestionStore struct {
	mu      sync.Mutex
	entries map[string]*EmailSuggestion
}

func newSuggestionStore() *suggestionStore {
	return &suggestionStore{entries: make(map[string]*EmailSuggestion)}
}

func (s *suggestionStore) add(clientName, to, subject, body string) EmailSuggestion {
	sg := EmailSuggestion{
		ID:         uuid.NewString(),
		ClientName: clientName,
		To:         to,
		Subject:    subject,
		Body:       body,
		Status:     "pending",
		CreatedAt:  time.Now().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.entries[sg.ID] = &sg
	s.mu.Unlock()

	return sg
}

// pending returns drafts awaiting review, oldest first.
func (s *suggestionStore) pending() []EmailSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EmailSuggestion, 0, len(s.entries))
	for _, sg := range s.entries {
		if sg.Status == "pending" {
			out = append(out, *sg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// resolve moves a pending draft to approved or rejected. An approved
// draft may carry an edited body. Returns false for an unknown ID.
func (s *suggestionStore) resolve(id, status, editedBody string) (EmailSuggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg, ok := s.entries[id]
	if !ok {
		return EmailSuggestion{}, false
	}
	if editedBody != "" {
		sg.Body = editedBody
	}
	sg.Status = status
	return *sg, true
}

func (s *suggestionStore) seed() {
	s.add(
		"Sarah Thompson",
		"Sarah Thompson <sarah.thompson@example.co.uk>",
		"Your updated suitability assessment",
		"Dear Sarah,\n\nFollowing our review of your portfolio I have attached the updated suitability assessment for your pension transfer.\n\nKind regards,\nAbimanyu",
	)
	s.add(
		"Brian Potter",
		"Brian Potter <brian.potter@example.co.uk>",
		"Life insurance renewal options",
		"Dear Brian,\n\nYour policy renews shortly. I have found a comparable policy at a better rate and would like to discuss it with you this week.\n\nKind regards,\nAbimanyu",
	)
}

// Meeting is one calendar entry on the weekly meetings view.
type Meeting struct {
	ID          string `json:"id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	Subject     string `json:"subject"`
	Date        string `json:"date"` // YYYY-MM-DD
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Content     string `json:"content"`
}

// weekMeetings seeds the current week's meetings relative to now, so
// the dashboard always shows a populated calendar.
func weekMeetings(now time.Time) []Meeting {
	monday := now.AddDate(0, 0, -int(now.Weekday()-time.Monday))
	if now.Weekday() == time.Sunday {
		monday = now.AddDate(0, 0, -6)
	}
	day := func(offset int) string {
		return monday.AddDate(0, 0, offset).Format("2006-01-02")
	}

	return []Meeting{
		{
			ID:          uuid.NewString(),
			ClientName:  "Sarah Thompson",
			ClientEmail: "sarah.thompson@example.co.uk",
			Subject:     "Pension transfer review",
			Date:        day(0),
			StartTime:   "10:00",
			EndTime:     "11:00",
			Content:     "Review updated suitability assessment and agree transfer timeline.",
		},
		{
			ID:          uuid.NewString(),
			ClientName:  "Brian Potter",
			ClientEmail: "brian.potter@example.co.uk",
			Subject:     "Life insurance renewal",
			Date:        day(1),
			StartTime:   "14:00",
			EndTime:     "14:45",
			Content:     "Compare renewal quote against Scottish Widows alternative.",
		},
		{
			ID:          uuid.NewString(),
			ClientName:  "Emma Thompson",
			ClientEmail: "emma.thompson@example.co.uk",
			Subject:     "Annual portfolio review",
			Date:        day(3),
			StartTime:   "09:30",
			EndTime:     "10:30",
			Content:     "Walk through annual performance and refreshed risk profile.",
		},
		{
			ID:          uuid.NewString(),
			ClientName:  "David Chen",
			ClientEmail: "david.chen@globalbank.com",
			Subject:     "ISA allowance planning",
			Date:        day(4),
			StartTime:   "15:00",
			EndTime:     "16:00",
			Content:     "Plan remaining ISA allowance usage before tax year end.",
		},
	}
}

// ScheduledTask describes one recurring background job.
type ScheduledTask struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cron        string `json:"cron"`
	NextRun     string `json:"next_run,omitempty"`
	Trigger     string `json:"trigger"`
}

func seedScheduledTasks() []ScheduledTask {
	return []ScheduledTask{
		{
			ID:          uuid.NewString(),
			Name:        "morning_briefing",
			Description: "Summarize overnight market moves and flag affected client portfolios.",
			Cron:        "0 8 * * 1-5",
			Trigger:     "cron",
		},
		{
			ID:          uuid.NewString(),
			Name:        "meeting_prep",
			Description: "Prepare briefing notes for the next day's client meetings.",
			Cron:        "0 17 * * 1-5",
			Trigger:     "cron",
		},
		{
			ID:          uuid.NewString(),
			Name:        "compliance_sweep",
			Description: "Review outgoing draft emails for missing risk disclosures.",
			Cron:        "0 12 * * *",
			Trigger:     "cron",
		},
	}
}
