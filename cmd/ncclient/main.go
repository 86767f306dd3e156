// Command ncclient connects to a netconf device and offers an interactive menu for
// inspecting and saving its running configuration.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damianoneill/ncclient/internal/config"
	"github.com/damianoneill/ncclient/internal/logx"
	"github.com/damianoneill/ncclient/internal/menu"
	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/metrics"
	"github.com/damianoneill/ncclient/netconf/ops"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ncclient: %v\n", err)
		os.Exit(2)
	}
	logx.Configure(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, menu.ErrQuit) {
			fmt.Println("Exiting.")
			return
		}
		fmt.Printf("\nError: %s\n", menu.Describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return err
	}

	hooks := cfg.Hooks()
	if cfg.MetricsAddr != "" {
		collectors := metrics.New()
		reg := prometheus.NewRegistry()
		if err = collectors.Register(reg); err != nil {
			return err
		}
		if err = serveMetrics(ctx, cfg.MetricsAddr, reg); err != nil {
			return err
		}
		hooks = metrics.Chain(hooks, collectors.Hooks())
	}

	creds, err := menu.PromptCredentials(os.Stdin, os.Stdout, readPassword, menu.Credentials{Host: cfg.Host, Username: cfg.Username})
	if err != nil {
		return err
	}

	operations := ops.New(clientCfg)
	fmt.Printf("\nConnecting to %s...\n", net.JoinHostPort(creds.Host, fmt.Sprint(cfg.Port)))
	if err = operations.Connect(client.WithClientTrace(ctx, hooks), creds.Host, cfg.Port, creds.Username, creds.Password); err != nil {
		return err
	}
	defer func() {
		if cerr := operations.Disconnect(); cerr != nil {
			log.Warn().Err(cerr).Msg("Close session failed")
		}
	}()
	fmt.Println("Connected.")

	return menu.New(operations, os.Stdin, os.Stdout, menu.WithBackupDir(cfg.BackupDir)).Run()
}

func readPassword() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// serveMetrics exposes the registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "metrics listener")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(c)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return nil
}
