package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/linkpulse/linkpulse/agent/internal/analyzer"
	"github.com/linkpulse/linkpulse/agent/internal/config"
	"github.com/linkpulse/linkpulse/agent/internal/paginator"
	"github.com/linkpulse/linkpulse/agent/internal/poller"
	"github.com/linkpulse/linkpulse/agent/internal/shipper"
	"github.com/linkpulse/linkpulse/agent/internal/source"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "analyse a single subscriber, print its metrics as JSON and exit")
	user := flag.String("user", "", "subscriber username for -once")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	// One-shot output goes to stdout, so logs move to stderr.
	var logOut io.Writer = os.Stdout
	if *once {
		logOut = os.Stderr
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level})))

	slog.Info("linkpulse-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"source_type", cfg.Agent.Source.Type,
		"subscribers", len(cfg.Agent.Subscribers),
		"poll_interval", cfg.Agent.PollInterval,
	)

	src, err := source.New(cfg.Agent.Source)
	if err != nil {
		slog.Error("failed to build source", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		code := runOnce(ctx, cfg.Agent, src, *user)
		cancel()
		os.Exit(code)
	}

	if cfg.Agent.ServerEndpoint == "" {
		slog.Error("agent.server_endpoint is required unless -once is set")
		os.Exit(1)
	}
	if len(cfg.Agent.Subscribers) == 0 {
		slog.Warn("no subscribers configured, agent will idle until the config changes")
	}

	ship := shipper.New(cfg.Agent)
	poll := poller.New(cfg.Agent, src, ship.Ship)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ship.Run(gctx)
		return nil
	})
	g.Go(func() error {
		poll.Run(gctx)
		return nil
	})
	g.Go(func() error {
		err := config.Watch(gctx, *configPath, func(updated *config.Config) {
			poll.Update(updated.Agent)
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
		return nil
	})

	_ = g.Wait()
	slog.Info("linkpulse-agent shutting down")
}

// onceOutput is the document printed by -once.
type onceOutput struct {
	Subscriber string            `json:"subscriber"`
	Outcome    string            `json:"outcome"`
	Error      string            `json:"error,omitempty"`
	Pages      int               `json:"pages"`
	Entries    int               `json:"entries"`
	Total      *int              `json:"total"`
	Metrics    *analyzer.Metrics `json:"metrics"`
}

// runOnce analyses one subscriber and prints the result. SIGINT cancels the
// fetch; the partial result is still printed.
func runOnce(ctx context.Context, cfg config.AgentConfig, src source.Source, username string) int {
	if username == "" {
		slog.Error("-user is required with -once")
		return 2
	}
	sub := config.Subscriber{Username: username}
	for _, s := range cfg.Subscribers {
		if s.Username == username {
			sub = s
		}
	}

	r := poller.New(cfg, src, nil).Analyze(ctx, sub)

	out := onceOutput{
		Subscriber: sub.Username,
		Outcome:    r.Fetch.Outcome.String(),
		Pages:      r.Fetch.Pages,
		Entries:    len(r.Fetch.Entries),
		Total:      r.Fetch.Total,
		Metrics:    r.Metrics,
	}
	if r.Fetch.Err != nil {
		out.Error = r.Fetch.Err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode metrics: %v\n", err)
		return 1
	}
	if r.Fetch.Outcome == paginator.OutcomeFailed {
		return 1
	}
	return 0
}
