package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yubing744/cli-agent-orchestrator/docs"
	"github.com/yubing744/cli-agent-orchestrator/src/api"
	"github.com/yubing744/cli-agent-orchestrator/src/orchestrator"
)

// @title           CLI Agent Orchestrator
// @version         0.1.0
// @description     Control API for orchestrating a fleet of tmux-backed interactive CLI agents.

// @host      localhost:8080
// @BasePath  /
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	port := flag.Int("port", 8080, "Port to listen on")
	shortPort := flag.Int("p", 8080, "Port to listen on (shorthand)")
	flag.Parse()

	portValue := *port
	if *shortPort != 8080 {
		portValue = *shortPort
	}

	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%d", os.Getenv("HOST"), portValue)

	cfg := orchestrator.Config{
		DBPath:     os.Getenv("CAO_DB_PATH"),
		LogDir:     os.Getenv("CAO_LOG_DIR"),
		MuxBackend: os.Getenv("CAO_MUX_BACKEND"),
		TmuxBinary: os.Getenv("CAO_TMUX_BIN"),
		PTYShell:   os.Getenv("CAO_PTY_SHELL"),
	}

	orch, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize orchestrator: %v", err)
	}
	defer orch.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}

	disableRequestLogging := os.Getenv("CAO_DISABLE_REQUEST_LOG") == "true"
	enableProcessingTime := os.Getenv("CAO_ENABLE_PROCESSING_TIME") != "false"

	router := api.SetupRouter(orch.Terminals, orch.Store, orch.PTYMux, disableRequestLogging, enableProcessingTime)

	serverAddr := fmt.Sprintf(":%d", portValue)
	log.Printf("Starting CLI Agent Orchestrator on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
