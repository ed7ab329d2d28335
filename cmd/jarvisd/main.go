// jarvisd: dashboard API and voice gateway for the advisor assistant.
// Serves the REST surface the web dashboard consumes plus the duplex
// voice websocket the terminal client connects to.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/advisorlab/go-jarvis/internal/config"
	"github.com/advisorlab/go-jarvis/internal/log"
	"github.com/advisorlab/go-jarvis/pkg/dashboard"
)

var version = "1.0.0"

func main() {
	cfg := config.LoadServer()

	listen := flag.String("listen", cfg.Listen, "Listen address")
	workspace := flag.String("workspace", cfg.Workspace, "Workspace root directory")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)
	logger := log.Component("jarvisd")

	fmt.Println()
	fmt.Println("🤖 Jarvis Dashboard v" + version)
	fmt.Println("   Financial advisor assistant service")
	fmt.Println()

	srv := dashboard.NewServer(dashboard.Config{
		Listen:      *listen,
		Workspace:   *workspace,
		FrontendURL: cfg.FrontendURL,
		Logger:      log.L(),
	})

	go func() {
		logger.Info("starting server",
			"listen", *listen,
			"workspace", *workspace)
		fmt.Printf("🚀 API:   http://localhost%s/api\n", *listen)
		fmt.Printf("   Voice: ws://localhost%s/ws/voice\n", *listen)
		fmt.Println()

		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n👋 Shutting down...")
	if err := srv.Shutdown(); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
