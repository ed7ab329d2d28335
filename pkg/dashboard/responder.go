package dashboard

import (
	"context"
	"fmt"
)

// Responder produces the textual reply for one chat exchange. The real
// agent pipeline lives outside this service; deployments plug theirs in
// and the canned responder covers development and tests.
type Responder interface {
	Respond(ctx context.Context, agent, message, threadID string) (string, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, agent, message, threadID string) (string, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, agent, message, threadID string) (string, error) {
	return f(ctx, agent, message, threadID)
}

// Agents known to the dashboard.
const (
	AgentJarvis = "jarvis"
	AgentAtlas  = "atlas"
	AgentEmma   = "emma"
	AgentColin  = "colin"
)

var agentRoles = map[string]string{
	AgentJarvis: "your financial advisory assistant",
	AgentAtlas:  "the research analyst",
	AgentEmma:   "the correspondence drafter",
	AgentColin:  "the compliance reviewer",
}

// CannedResponder returns a deterministic reply naming the agent, for
// development without an agent pipeline attached.
func CannedResponder() Responder {
	return ResponderFunc(func(ctx context.Context, agent, message, threadID string) (string, error) {
		role, ok := agentRoles[agent]
		if !ok {
			return "", fmt.Errorf("dashboard: unknown agent %q", agent)
		}
		return fmt.Sprintf("This is %s, %s. I received your message: %q", agent, role, message), nil
	})
}
