// jarvis: terminal client for the advisor assistant.
//
// Push-to-talk voice mode plus plain text chat against the same
// backend:
//
//	jarvis                       # talk to jarvis at localhost:8000
//	jarvis -agent atlas          # pick an agent
//	jarvis -api http://host:8000 # point at a remote backend
//
// An empty line toggles recording. Anything else is sent as a text
// message. /agent switches agents, /quit exits.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/advisorlab/go-jarvis/internal/config"
	"github.com/advisorlab/go-jarvis/internal/log"
	"github.com/advisorlab/go-jarvis/pkg/audioio"
	"github.com/advisorlab/go-jarvis/pkg/chat"
	"github.com/advisorlab/go-jarvis/pkg/conversation"
)

func main() {
	cfg := config.LoadClient()

	apiBase := flag.String("api", cfg.APIBase, "Dashboard API base URL")
	agent := flag.String("agent", cfg.Agent, "Agent to talk to")
	device := flag.String("device", cfg.CaptureDevice, "Capture device (ALSA name, empty for default)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)
	logger := log.Component("jarvis")

	fmt.Println("🎙  Jarvis")
	fmt.Printf("   backend: %s  agent: %s\n", *apiBase, *agent)
	fmt.Println("   [enter] toggle recording · /agent <name> · /quit")
	fmt.Println()

	capCfg := audioio.DefaultCaptureConfig()
	capCfg.Device = *device

	ctrl := conversation.NewController(
		conversation.WithBaseURL(*apiBase),
		conversation.WithCaptureConfig(capCfg),
		conversation.WithLogger(log.L()),
	)
	defer ctrl.Close()

	ui := newRenderer(ctrl)
	ctrl.OnStateChange(ui.onState)
	ctrl.OnMessagesChanged(ui.render)

	textClient := chat.NewClient(*apiBase, log.L())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Bye")
		cancel()
		ctrl.Close()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			toggleRecording(ctx, ctrl, *agent, logger)

		case line == "/quit" || line == "/exit":
			fmt.Println("👋 Bye")
			return

		case strings.HasPrefix(line, "/agent"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/agent"))
			if name == "" {
				fmt.Printf("   agent: %s\n", *agent)
				continue
			}
			*agent = name
			textClient.ResetThread()
			fmt.Printf("   agent → %s\n", *agent)

		default:
			ctrl.Record(conversation.RoleUser, *agent, line)
			resp, err := textClient.Send(ctx, *agent, line)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				continue
			}
			ctrl.Record(conversation.RoleAssistant, *agent, resp.Response)
		}
	}
}

func toggleRecording(ctx context.Context, ctrl *conversation.Controller, agent string, logger *slog.Logger) {
	switch ctrl.State() {
	case conversation.StateRecording:
		if err := ctrl.StopRecording(); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
	default:
		if err := ctrl.StartRecording(ctx, agent); err != nil {
			logger.Error("start recording failed", "error", err)
			fmt.Printf("❌ %v\n", err)
		}
	}
}

// renderer prints the conversation incrementally. Assistant text
// arrives in chunks, so it tracks how much of each message it has
// already written and emits only the delta.
type renderer struct {
	ctrl    *conversation.Controller
	printed []int
}

func newRenderer(ctrl *conversation.Controller) *renderer {
	return &renderer{ctrl: ctrl}
}

func (r *renderer) onState(s conversation.State) {
	switch s {
	case conversation.StateRecording:
		fmt.Println("🔴 recording, press enter to stop")
	case conversation.StateAwaitingTranscript:
		fmt.Println("⏳ thinking...")
	}
}

func (r *renderer) render() {
	msgs := r.ctrl.Messages()
	for i, m := range msgs {
		if i >= len(r.printed) {
			if i > 0 && msgs[i-1].Role == conversation.RoleAssistant {
				fmt.Println()
			}
			r.printed = append(r.printed, 0)
			if m.Role == conversation.RoleUser {
				fmt.Printf("you: %s\n", m.Text)
				r.printed[i] = len(m.Text)
				continue
			}
			fmt.Printf("%s: ", m.Agent)
		}
		if m.Failed && r.printed[i] >= 0 {
			fmt.Printf("%s ❌\n", m.Text[r.printed[i]:])
			r.printed[i] = -1
			continue
		}
		if r.printed[i] >= 0 && len(m.Text) > r.printed[i] {
			fmt.Print(m.Text[r.printed[i]:])
			r.printed[i] = len(m.Text)
		}
	}
}
