// Package main is the entry point for the chat gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/compresr/chat-gateway/internal/config"
	"github.com/compresr/chat-gateway/internal/gateway"
	"github.com/compresr/chat-gateway/internal/monitoring"
)

// Version is set at build time via ldflags.
var Version = "v0.1.0"

// ANSI color codes
const (
	colorGreen  = "\033[38;2;23;128;68m"
	colorYellow = "\033[1;33m"
	colorCyan   = "\033[0;36m"
	colorRed    = "\033[0;31m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

const banner = `
   ___ _         _      ___         _
  / __| |_  __ _| |_   / __|__ _ __| |_ __ ____ _ _  _
 | (__| ' \/ _' |  _| | (_ / _' |/ _|  _/ -_) V  V / _' | || |
  \___|_||_\__,_|\__|  \___\__,_|\__|\__\___|\_/\_/\__,_|\_, |
                                                        |__/
`

func printBanner() {
	fmt.Print(colorGreen + colorBold + banner + colorReset + "\n")
}

// getConfigDir returns ~/.config/chat-gateway
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "chat-gateway")
}

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	if dir := getConfigDir(); dir != "" {
		configEnv := filepath.Join(dir, ".env")
		if _, err := os.Stat(configEnv); err == nil {
			_ = godotenv.Load(configEnv)
		}
	}

	// Also load local .env. godotenv never overrides variables that are already set.
	_ = godotenv.Load()
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "serve", "start":
		runGatewayServer(os.Args[2:])
	case "ask":
		os.Exit(runAskCommand(os.Args[2:]))
	case "providers":
		os.Exit(runProvidersCommand(os.Args[2:]))
	case "version", "-v", "--version":
		printVersion()
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(2)
	}
}

// resolveServeConfig resolves the config for the serve command.
// Checks: user flag (path, then embedded name) -> filesystem locations -> embedded default.
// Returns raw bytes and source description.
func resolveServeConfig(userConfig string) ([]byte, string, error) {
	if userConfig != "" {
		if data, err := os.ReadFile(userConfig); err == nil {
			return data, userConfig, nil
		}
		if data, err := getEmbeddedConfig(userConfig); err == nil {
			return data, "(embedded) " + userConfig, nil
		}
		names, _ := listEmbeddedConfigs()
		return nil, "", fmt.Errorf("config file not found: %s (embedded configs: %s)", userConfig, strings.Join(names, ", "))
	}

	var searchPaths []string
	if dir := getConfigDir(); dir != "" {
		searchPaths = append(searchPaths, filepath.Join(dir, "config.yaml"))
	}
	searchPaths = append(searchPaths, "configs/config.yaml")

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return data, path, nil
		}
	}

	if data, err := getEmbeddedConfig("config"); err == nil {
		return data, "(embedded) config.yaml", nil
	}

	return nil, "", fmt.Errorf("no config file found. Specify --config path")
}

// runGatewayServer starts the HTTP/WebSocket server.
func runGatewayServer(args []string) {
	loadEnvFiles()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	noBanner := fs.Bool("no-banner", false, "suppress startup banner")
	_ = fs.Parse(args) // ExitOnError handles errors

	if !*noBanner {
		printBanner()
	}

	setupLogging(*debug, os.Stdout)

	configData, configSource, err := resolveServeConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("No config file found. Specify --config path")
	}

	cfg, err := config.LoadFromBytes(configData)
	if err != nil {
		log.Fatal().Err(err).Str("config", configSource).Msg("failed to load configuration")
	}
	if *debug {
		cfg.Monitoring.LogLevel = "debug"
	}

	log.Info().
		Str("version", Version).
		Str("config", configSource).
		Int("port", cfg.Server.Port).
		Strs("configured_providers", configuredProviders(&cfg.Providers)).
		Msg("configuration loaded")

	gw, err := gateway.New(cfg,
		gateway.WithLogger(monitoring.NewFromZerolog(log.Logger)),
		gateway.WithVersion(Version),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway")
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := gw.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	if err := gw.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("gateway error")
	}

	log.Info().Msg("chat gateway stopped")
}

// setupLogging configures the global zerolog logger with console output.
func setupLogging(debug bool, out *os.File) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	})

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// configuredProviders lists providers whose credentials are present.
func configuredProviders(p *config.ProvidersConfig) []string {
	var names []string
	for _, name := range config.ProviderNames {
		if p.Configured(name) {
			names = append(names, name)
		}
	}
	return names
}

// printVersion prints the current version
func printVersion() {
	fmt.Printf("chat-gateway %s\n", Version)
	fmt.Printf("Runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp prints usage information
func printHelp() {
	printBanner()
	fmt.Println("Chat Gateway - one chat API in front of OpenAI, Anthropic, Google, Azure and custom endpoints")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chat-gateway [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve        Start the HTTP/WebSocket gateway")
	fmt.Println("  ask          Send a message to a provider from the terminal")
	fmt.Println("  providers    List providers and whether credentials are configured")
	fmt.Println("  version      Print version information")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Server Options:")
	fmt.Println("  chat-gateway serve [--config FILE] [--debug] [--no-banner]")
	fmt.Println()
	fmt.Println("Ask Options:")
	fmt.Println("  chat-gateway ask [--provider NAME] [--model ID] [--system TEXT] [--timeout 30s] [--config FILE] [MESSAGE]")
	fmt.Println("  Without MESSAGE, reads stdin; on a terminal, starts an interactive session.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  chat-gateway serve")
	fmt.Println("  chat-gateway ask --provider anthropic \"What is a goroutine?\"")
	fmt.Println("  echo \"hello\" | chat-gateway ask --provider gemini")
	fmt.Println()
	fmt.Printf("Credentials are read from the environment, %s/.env and ./.env\n", getConfigDir())
}
