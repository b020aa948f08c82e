package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/document-rectify-mcp/internal/config"
	"github.com/ironsheep/document-rectify-mcp/internal/logging"
	"github.com/ironsheep/document-rectify-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func printHelp() {
	fmt.Println("docrectify-mcp - MCP server for document photo rectification")
	fmt.Println()
	fmt.Println("Usage: docrectify-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>  YAML configuration file (defaults apply when absent)")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  DOCRECTIFY_LOG_LEVEL=debug        Log level (debug, info, warn, error)")
	fmt.Println("  DOCRECTIFY_LOG_FORMAT=text        Log format (json, text)")
	fmt.Println("  DOCRECTIFY_PREFER_GPU=true        Request an accelerated context")
	fmt.Println("  DOCRECTIFY_REFINE_CORNERS=false   Disable sub-pixel corner refinement")
	fmt.Println("  DOCRECTIFY_OCR_LANGUAGE=deu       Tesseract language for document_ocr")
	fmt.Println("  DOCRECTIFY_CACHE_SIZE=32          Number of decoded photos to cache")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Logs are written to stderr.")
}

func main() {
	configPath := ""

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("docrectify-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--config", "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n\n", args[i])
			printHelp()
			os.Exit(2)
		}
	}

	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid environment override: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if envErr != nil {
		if errors.Is(envErr, fs.ErrNotExist) {
			log.Debug("No .env file found")
		} else {
			log.WithError(envErr).Warn("Failed to load .env file")
		}
	}

	log.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
		"config":  configPath,
	}).Info("Document rectification MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, log)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("Server error")
	}
}
