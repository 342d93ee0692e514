// Command deskctl is the management CLI for deskd: run tickets through
// a local pipeline, submit them to a running daemon, and inspect
// metrics.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/deskd-io/deskd/internal/agent"
	"github.com/deskd-io/deskd/internal/config"
	"github.com/deskd-io/deskd/internal/guardrail"
	"github.com/deskd-io/deskd/internal/metrics"
	"github.com/deskd-io/deskd/internal/provider"
	"github.com/deskd-io/deskd/internal/search"
	"github.com/deskd-io/deskd/internal/workflow"
	"github.com/deskd-io/deskd/pkg/protocol"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "submit":
		cmdSubmit(os.Args[2:])
	case "health":
		cmdHealth()
	case "metrics":
		cmdMetrics(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: deskctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// --- run: local one-shot or interactive pipeline ---

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	provType := fs.String("provider", envOr("DESKD_PROVIDER", "openai"), "Provider type: openai or anthropic")
	model := fs.String("model", envOr("DESKD_MODEL", ""), "LLM model name")
	apiKey := fs.String("api-key", "", "API key (or set DESKD_GROQ_API_KEY / DESKD_ANTHROPIC_API_KEY)")
	baseURL := fs.String("base-url", envOr("DESKD_BASE_URL", ""), "Override API base URL")
	ticket := fs.String("ticket", "", "Single ticket text (omit for interactive)")
	verbose := fs.Bool("v", false, "Verbose logging")
	fs.Parse(args)

	if *apiKey == "" {
		switch *provType {
		case "anthropic":
			*apiKey = os.Getenv("DESKD_ANTHROPIC_API_KEY")
		default:
			*apiKey = envOr("DESKD_GROQ_API_KEY", os.Getenv("DESKD_OPENAI_API_KEY"))
		}
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "error: API key required (--api-key, DESKD_GROQ_API_KEY, or DESKD_ANTHROPIC_API_KEY)")
		os.Exit(1)
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	var prov provider.Provider
	switch *provType {
	case "anthropic":
		if *model == "" {
			*model = "claude-sonnet-4-20250514"
		}
		opts := []provider.AnthropicOption{provider.WithAnthropicModel(*model)}
		if *baseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(*baseURL))
		}
		prov = provider.NewAnthropic(*apiKey, opts...)
	default:
		if *model == "" {
			*model = "llama-3.3-70b-versatile"
		}
		opts := []provider.OpenAIOption{provider.WithModel(*model)}
		if *baseURL != "" {
			opts = append(opts, provider.WithBaseURL(*baseURL))
		}
		prov = provider.NewOpenAI(*apiKey, opts...)
	}

	searcher := search.New(os.Getenv("DESKD_BRAVE_API_KEY"))
	cfg := &config.Config{Provider: config.ProviderConfig{APIKey: *apiKey, Model: *model}}
	cfg.ApplyDefaults()

	orch, err := workflow.New(workflow.Params{
		Classifier:    agent.NewClassifier(prov),
		Technical:     agent.NewTechnical(prov, searcher),
		Billing:       agent.NewBilling(prov),
		General:       agent.NewGeneral(prov, searcher),
		ContentFilter: guardrail.NewContentFilter(cfg.Guardrails.ProhibitedTopics),
		Validator:     guardrail.NewResponseValidator(cfg.Guardrails.MinResponseLength, cfg.Guardrails.MaxResponseLength),
		Escalation:    guardrail.NewEscalationChecker(cfg.Guardrails.EscalationTriggers, cfg.Guardrails.ConfidenceThreshold),
		Tracker:       metrics.NewTracker(metrics.WithLogger(logger)),
		Logger:        logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *ticket != "" {
		result, err := orch.ProcessTicket(ctx, *ticket)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printResult(result)
		return
	}

	fmt.Println("deskctl interactive mode (type 'quit' to exit)")
	fmt.Printf("Model: %s\n\n", *model)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		result, err := orch.ProcessTicket(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printResult(result)
		fmt.Println()
	}
}

func printResult(r *protocol.Result) {
	fmt.Printf("Ticket:     %s\n", r.TicketID)
	fmt.Printf("Category:   %s (agent: %s)\n", r.Category, r.AgentUsed)
	fmt.Printf("Confidence: %.2f\n", r.Confidence)
	if r.Escalated {
		fmt.Println("Escalated:  yes")
	}
	if len(r.Violations) > 0 {
		fmt.Println("Violations:")
		for _, v := range r.Violations {
			fmt.Printf("  - %s\n", v.String())
		}
	}
	fmt.Println()
	fmt.Println(r.Response)
}

// --- API client commands ---

func cmdSubmit(args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	fs.Parse(args)
	text := strings.Join(fs.Args(), " ")
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: deskctl submit <ticket text>")
		os.Exit(1)
	}

	payload, _ := json.Marshal(map[string]string{"text": text})
	body, err := apiDo("POST", "/api/tickets", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var result protocol.Result
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Println(string(body))
		return
	}
	printResult(&result)
}

func cmdHealth() {
	body, err := apiDo("GET", "/api/health", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdMetrics(args []string) {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	recent := fs.Int("recent", 0, "Show the N most recent interactions instead of the summary")
	fs.Parse(args)

	if *recent > 0 {
		body, err := apiDo("GET", fmt.Sprintf("/api/metrics/recent?limit=%d", *recent), nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		var interactions []protocol.Interaction
		if err := json.Unmarshal(body, &interactions); err != nil {
			fmt.Println(string(body))
			return
		}
		for _, i := range interactions {
			escalated := ""
			if i.Escalated {
				escalated = " [escalated]"
			}
			fmt.Printf("%-42s %-10s conf=%.2f %.2fs%s\n",
				i.TicketID, i.Category, i.Confidence, i.ResponseTime, escalated)
		}
		return
	}

	body, err := apiDo("GET", "/api/metrics", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	path := fs.String("path", "", "Destination path on the daemon host (default: daemon's configured path)")
	fs.Parse(args)

	var payload []byte
	if *path != "" {
		payload, _ = json.Marshal(map[string]string{"path": *path})
	}
	body, err := apiDo("POST", "/api/metrics/export", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiDo(method, path string, payload []byte) ([]byte, error) {
	base := envOr("DESKD_API_URL", "http://localhost:8080")

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("DESKD_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("deskctl - support triage CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run                  Process tickets locally (--ticket, or interactive)")
	fmt.Println("  submit <text>        Submit a ticket to a running daemon")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  metrics              Show metrics summary (--recent N for interactions)")
	fmt.Println("  export               Trigger a metrics export on the daemon (--path)")
	fmt.Println("  config validate <p>  Validate a config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DESKD_API_URL            Daemon URL (default: http://localhost:8080)")
	fmt.Println("  DESKD_API_KEY            API key for authentication")
	fmt.Println("  DESKD_PROVIDER           Provider type: openai (default) or anthropic")
	fmt.Println("  DESKD_GROQ_API_KEY       API key for the OpenAI-compatible provider")
	fmt.Println("  DESKD_ANTHROPIC_API_KEY  API key for the Anthropic provider")
	fmt.Println("  DESKD_BRAVE_API_KEY      Brave Search API key")
}
