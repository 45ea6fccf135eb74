package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/omr-tools-mcp/internal/config"
	"github.com/ironsheep/omr-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("omr-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("omr-tools-mcp - MCP server for grading bubble answer sheets")
			fmt.Println()
			fmt.Println("Usage: omr-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env or OMR_ENV_FILE):")
			fmt.Println("  OMR_LOG_LEVEL=debug             Enable debug logging")
			fmt.Println("  OMR_THRESHOLD=128               Binarization threshold (1-255)")
			fmt.Println("  OMR_MIN_CIRCLE_RADIUS=10        Smallest bubble radius in pixels")
			fmt.Println("  OMR_MAX_CIRCLE_RADIUS=20        Largest bubble radius in pixels")
			fmt.Println("  OMR_GRID_TOLERANCE=20           Largest vertical gap within a row")
			fmt.Println("  OMR_FILL_THRESHOLD=0.5          Dark fraction marking a bubble filled")
			fmt.Println("  OMR_OPTIONS_PER_QUESTION=5      Bubbles per question")
			fmt.Println("  OMR_MAX_WIDTH=1200              Sheets wider than this are downscaled")
			fmt.Println("  OMR_WORKERS=<cpus>              Concurrent sheets in a batch")
			fmt.Println("  OMR_OCR_LANGUAGE=eng            Tesseract language for header reading")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Register it as a stdio server in your MCP client.")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(os.Getenv("OMR_ENV_FILE"))
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if cfg.Debug() {
		log.Printf("OMR MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("config: %+v", *cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
