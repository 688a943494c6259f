// Command tracker is a terminal client of the tracking hub.
//
//	tracker watch -token T -order 42        follow an order as a buyer
//	tracker agent -token T -id 7 < fixes    replay NDJSON fixes as agent 7
//
// Fixes are lines of {"lat":..,"lng":..,"observedAt":..}.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"trackinghub/cmd"
	"trackinghub/internal/adapters/out/restapi"
	"trackinghub/internal/adapters/out/wsclient"
	"trackinghub/internal/agentfeed"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/geo"
	"trackinghub/internal/session"
	"trackinghub/internal/tracking"

	"github.com/labstack/gommon/log"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := cmd.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "watch":
		err = runWatch(ctx, cfg, logger, os.Args[2:])
	case "agent":
		err = runAgent(ctx, cfg, logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tracker watch|agent [flags]")
}

type commonFlags struct {
	hubURL string
	token  string
}

func registerCommon(fs *flag.FlagSet, cfg cmd.Config) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.hubURL, "hub", "ws://localhost:"+cfg.HTTPPort+"/ws", "push channel URL")
	fs.StringVar(&c.token, "token", os.Getenv("TRACKER_TOKEN"), "bearer token")
	return c
}

func (c *commonFlags) newManager(logger *slog.Logger, onState func(session.State)) (*session.Manager, error) {
	if c.token == "" {
		return nil, errors.New("-token is required")
	}
	transport := wsclient.NewTransport(c.hubURL, wsclient.WithLogger(logger))
	return session.NewManager(transport, session.DefaultConfig(c.token),
		session.WithLogger(logger),
		session.WithStateObserver(onState),
	)
}

func runWatch(ctx context.Context, cfg cmd.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	common := registerCommon(fs, cfg)
	orderFlag := fs.Int64("order", 0, "order id")
	_ = fs.Parse(args)

	orderID, err := kernel.NewID(*orderFlag)
	if err != nil {
		return fmt.Errorf("-order: %w", err)
	}

	client, err := restapi.NewClient(cfg.RestBaseURL, restapi.WithTimeout(cfg.RestTimeout), restapi.WithLogger(logger))
	if err != nil {
		return err
	}

	mgr, err := common.newManager(logger, func(s session.State) {
		logger.Debug("session state", "state", s.String())
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	rec, err := tracking.NewReconciler(orderID, tracking.ClientFetcher(client, common.token),
		tracking.WithOnChange(printView),
		tracking.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err = mgr.Subscribe(ctx, rec); err != nil {
		return err
	}

	return mgr.Run(ctx)
}

func printView(v tracking.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "order %s  %s (%s)", v.OrderID, v.Status, v.Group())
	if v.AgentID != nil {
		fmt.Fprintf(&b, "  agent %s", v.AgentID)
		if v.AgentName != "" {
			fmt.Fprintf(&b, " %s", v.AgentName)
		}
	}
	if v.AgentLocation != nil {
		fmt.Fprintf(&b, "  at %s (%s)", v.AgentLocation.Coordinates, v.AgentLocation.ObservedAt.Format(time.TimeOnly))
	}
	if v.Reconnecting {
		b.WriteString("  [reconnecting]")
	}
	if v.Denied {
		b.WriteString("  [denied]")
	}
	fmt.Println(b.String())
}

func runAgent(ctx context.Context, cfg cmd.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	common := registerCommon(fs, cfg)
	agentFlag := fs.Int64("id", 0, "agent id")
	interval := fs.Duration("interval", time.Second, "delay between replayed fixes")
	request := fs.String("request", "", "status request to send once connected, as ORDER:STATUS")
	_ = fs.Parse(args)

	agentID, err := kernel.NewID(*agentFlag)
	if err != nil {
		return fmt.Errorf("-id: %w", err)
	}

	ready := make(chan struct{})
	var once sync.Once
	mgr, err := common.newManager(logger, func(s session.State) {
		if s >= session.Authenticated {
			once.Do(func() { close(ready) })
		}
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	feeder, err := agentfeed.NewFeeder(agentID, geo.NewReplayProvider(os.Stdin, *interval), mgr, geo.DefaultOptions(), logger)
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- mgr.Run(ctx) }()

	select {
	case <-ready:
	case err = <-runErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	if *request != "" {
		if err = sendRequest(ctx, feeder, *request); err != nil {
			return err
		}
	}

	err = feeder.Run(ctx)
	stats := feeder.Stats()
	logger.Info("replay finished", "sent", stats.Sent, "invalid", stats.Invalid, "stale", stats.Stale, "failed", stats.Failed)
	return err
}

func sendRequest(ctx context.Context, feeder *agentfeed.Feeder, raw string) error {
	rawOrder, rawStatus, ok := strings.Cut(raw, ":")
	if !ok {
		return fmt.Errorf("-request %q: want ORDER:STATUS", raw)
	}
	orderID, err := kernel.ParseID(rawOrder)
	if err != nil {
		return fmt.Errorf("-request: %w", err)
	}
	to, err := order.ParseStatus(rawStatus)
	if err != nil {
		return fmt.Errorf("-request: %w", err)
	}
	return feeder.RequestStatus(ctx, orderID, to)
}
