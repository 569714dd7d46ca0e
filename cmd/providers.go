package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/compresr/chat-gateway/internal/config"
)

// runProvidersCommand lists providers and whether each has the credentials it needs.
func runProvidersCommand(args []string) int {
	loadEnvFiles()

	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default: credentials from environment)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	providers, _, err := loadAskProviders(*configPath)
	if err != nil {
		printError(os.Stderr, err.Error())
		return exitUsage
	}
	printProviders(os.Stdout, &providers)
	return exitOK
}

func printProviders(w io.Writer, p *config.ProvidersConfig) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tSTATUS\tKEY\tMODEL\tENDPOINT")
	for _, name := range config.ProviderNames {
		s, _ := p.Get(name)
		status := "missing credentials"
		if p.Configured(name) {
			status = "ready"
		}
		model := s.Model
		if name == config.ProviderAzure {
			model = s.Deployment
		}
		if model == "" {
			model = "-"
		}
		endpoint := s.Endpoint
		if endpoint == "" {
			endpoint = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, status, maskKey(s.APIKey), model, endpoint)
	}
	_ = tw.Flush()
}

// maskKey shows only the edges of a credential.
func maskKey(key string) string {
	if key == "" {
		return "-"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
