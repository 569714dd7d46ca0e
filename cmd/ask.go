package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/compresr/chat-gateway/internal/adapters"
	"github.com/compresr/chat-gateway/internal/apierrors"
	"github.com/compresr/chat-gateway/internal/config"
	"github.com/compresr/chat-gateway/internal/dispatch"
	"github.com/compresr/chat-gateway/internal/monitoring"
	"github.com/compresr/chat-gateway/internal/tui"
)

// Exit codes for ask.
const (
	exitOK        = 0
	exitFailed    = 1
	exitUsage     = 2
	exitRetryable = 75 // EX_TEMPFAIL: the same request may succeed later
)

// askOptions holds parsed flags for the ask command.
type askOptions struct {
	provider   string
	model      string
	system     string
	configPath string
	timeout    time.Duration
	debug      bool
	message    string
}

func parseAskArgs(args []string, stderr io.Writer) (*askOptions, error) {
	opts := &askOptions{}
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.provider, "provider", "", "provider: openai, anthropic, google, azure, custom (default from config, else openai)")
	fs.StringVar(&opts.model, "model", "", "model or deployment hint")
	fs.StringVar(&opts.system, "system", "", "system prompt")
	fs.StringVar(&opts.configPath, "config", "", "config file (default: credentials from environment)")
	fs.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "exchange timeout")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.message = strings.TrimSpace(strings.Join(fs.Args(), " "))
	return opts, nil
}

// loadAskProviders reads provider settings from a config file, or from the
// environment when no file is given. Returns the settings and default provider.
func loadAskProviders(configPath string) (config.ProvidersConfig, string, error) {
	if configPath == "" {
		return config.ProvidersFromAccessor(config.EnvAccessor{}), os.Getenv("CHAT_GATEWAY_PROVIDER"), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.ProvidersConfig{}, "", err
	}
	return cfg.Providers, cfg.Gateway.DefaultProvider, nil
}

// runAskCommand sends one message (or runs an interactive session) and returns the exit code.
func runAskCommand(args []string) int {
	loadEnvFiles()

	opts, err := parseAskArgs(args, os.Stderr)
	if err != nil {
		return exitUsage
	}

	// Logs go to stderr so stdout carries only replies.
	setupLogging(opts.debug, os.Stderr)
	if !opts.debug {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	providers, defaultProvider, err := loadAskProviders(opts.configPath)
	if err != nil {
		printError(os.Stderr, err.Error())
		return exitUsage
	}

	interactive := opts.message == "" && tui.IsInteractive()
	if interactive {
		if opts.provider == "" {
			items := providerMenu(&providers)
			idx, err := tui.SelectMenu("Select a provider", items)
			if err != nil {
				return exitUsage
			}
			opts.provider = items[idx].Value
		}
		promptMissingKey(&providers, opts.provider)
	}

	d := dispatch.New(adapters.NewRegistry(providers, nil), dispatch.Options{
		Timeout:         opts.timeout,
		DefaultProvider: defaultProvider,
		Logger:          monitoring.NewFromZerolog(log.Logger),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.message != "" {
		return askOnce(ctx, d, opts, os.Stdout, os.Stderr)
	}
	if interactive {
		return askInteractive(ctx, d, opts, os.Stdin, os.Stdout, os.Stderr)
	}

	data, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
	if err != nil {
		printError(os.Stderr, fmt.Sprintf("failed to read stdin: %v", err))
		return exitFailed
	}
	opts.message = strings.TrimSpace(string(data))
	return askOnce(ctx, d, opts, os.Stdout, os.Stderr)
}

// providerMenu lists providers in config.ProviderNames order with their credential status.
func providerMenu(p *config.ProvidersConfig) []tui.MenuItem {
	items := make([]tui.MenuItem, 0, len(config.ProviderNames))
	for _, name := range config.ProviderNames {
		status := "missing credentials"
		if p.Configured(name) {
			status = "ready"
		}
		items = append(items, tui.MenuItem{Label: name, Description: status, Value: name})
	}
	return items
}

// promptMissingKey asks for an API key (used for this session only) when a
// key-only provider has none configured.
func promptMissingKey(p *config.ProvidersConfig, provider string) {
	name, _ := adapters.ParseProvider(provider)
	var s *config.ProviderSettings
	switch name {
	case adapters.ProviderOpenAI:
		s = &p.OpenAI
	case adapters.ProviderAnthropic:
		s = &p.Anthropic
	case adapters.ProviderGoogle:
		s = &p.Google
	default:
		return
	}
	if s.APIKey != "" {
		return
	}
	s.APIKey = tui.PromptPassword(fmt.Sprintf("%s API key (not saved): ", name))
}

// askOnce dispatches opts.message and prints the reply to out.
func askOnce(ctx context.Context, d *dispatch.Dispatcher, opts *askOptions, out, errOut io.Writer) int {
	reply, err := d.DispatchMessage(ctx, opts.provider, opts.message, opts.system, opts.model)
	if err != nil {
		return reportError(errOut, err)
	}
	if reply.DebugInfo != "" {
		printWarn(errOut, reply.DebugInfo)
	}
	fmt.Fprintln(out, reply.Text)
	return exitOK
}

// askInteractive reads one message per line until EOF or /quit.
// Failed exchanges are reported and the session continues.
func askInteractive(ctx context.Context, d *dispatch.Dispatcher, opts *askOptions, in io.Reader, out, errOut io.Writer) int {
	label := opts.provider
	if label == "" {
		label = "gateway"
	}
	fmt.Fprintf(out, "%sChatting via %s. Type /quit to exit.%s\n", colorCyan, label, colorReset)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	last := exitOK
	for {
		fmt.Fprint(out, colorBold+"you> "+colorReset)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return last
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return last
		}

		if ctx.Err() != nil {
			return last
		}

		reply, err := d.DispatchMessage(ctx, opts.provider, line, opts.system, opts.model)
		if err != nil {
			last = reportError(errOut, err)
			continue
		}
		if reply.DebugInfo != "" {
			printWarn(errOut, reply.DebugInfo)
		}
		fmt.Fprintf(out, "%s%s>%s %s\n", colorGreen, label, colorReset, reply.Text)
		last = exitOK
	}
}

// reportError prints a gateway error and maps it to an exit code.
func reportError(w io.Writer, err error) int {
	ge := apierrors.As(err)
	msg := fmt.Sprintf("%s: %s", ge.Kind, ge.Message)
	if ge.DebugInfo != "" {
		msg += " (" + ge.DebugInfo + ")"
	}
	printError(w, msg)
	if ge.Retryable() {
		printInfo(w, "this error is transient; retrying later may succeed")
		return exitRetryable
	}
	return exitFailed
}
