// Package cli assembles zenlited's cobra command tree.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joshuafuller/zenlite/cmd/zenlited/internal/peer"
	"github.com/joshuafuller/zenlite/internal/metrics"
	"github.com/joshuafuller/zenlite/internal/session"
)

// NewRootCommand builds zenlited's command tree.
func NewRootCommand(log *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "zenlited",
		Short: "Demonstration peer for the session query/reply and subscription core",
	}

	root.AddCommand(newPutCommand(log), newSubCommand(log), newGetCommand(log), newServeCommand(log))
	return root
}

func newPutCommand(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "put <key-expr> <payload>",
		Short: "Publish a sample on a key expression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := peer.New(log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			return p.Put(cmd.Context(), args[0], []byte(args[1]))
		},
	}
}

func newSubCommand(log *zap.Logger) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "sub <key-expr>",
		Short: "Subscribe to a key expression until interrupted or timeout elapses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := peer.New(log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			return p.Subscribe(ctx, args[0], func(s session.Sample) {
				fmt.Printf("%s: %s\n", s.KeyExpr, s.Payload)
			})
		},
	}
	cmd.Flags().DurationVar(&duration, "for", 0, "stop subscribing after this duration (0 = until interrupted)")
	return cmd
}

func newGetCommand(log *zap.Logger) *cobra.Command {
	var timeout time.Duration
	var policy string
	cmd := &cobra.Command{
		Use:   "get <key-expr>",
		Short: "Issue a query and print consolidated replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := peer.New(log, nil)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			consolidation, err := parseConsolidation(policy)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return p.Get(ctx, args[0], consolidation, func(r session.Reply) {
				if r.Tag == session.ReplyFinal {
					fmt.Println("-- final --")
					return
				}
				fmt.Printf("%s: %s\n", r.KeyExpr, r.Payload)
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for a final reply")
	cmd.Flags().StringVar(&policy, "consolidation", "lazy", "reception consolidation policy: none|lazy|full")
	return cmd
}

func newServeCommand(log *zap.Logger) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a long-lived peer exposing Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			collector := metrics.NewCollector(reg)

			p, err := peer.New(log, collector)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			server := &http.Server{Addr: metricsAddr, Handler: mux}

			go func() {
				<-cmd.Context().Done()
				_ = server.Close()
			}()

			log.Info("serving metrics", zap.String("addr", metricsAddr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	return cmd
}

func parseConsolidation(s string) (session.Consolidation, error) {
	switch s {
	case "none":
		return session.ConsolidationNone, nil
	case "lazy":
		return session.ConsolidationLazy, nil
	case "full":
		return session.ConsolidationFull, nil
	default:
		return 0, fmt.Errorf("unknown consolidation policy %q (want none|lazy|full)", s)
	}
}
