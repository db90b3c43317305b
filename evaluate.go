package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pigchase/agent"
	"pigchase/config"
	"pigchase/engine"
	"pigchase/environment"
	"pigchase/experiments"
	"pigchase/experiments/metrics"
)

type evaluateFlags struct {
	configPath  string
	clients     []string
	agent100k   string
	agent500k   string
	output      string
	metricsAddr string
}

func newEvaluateCmd() *cobra.Command {
	flags := &evaluateFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the 100k and 500k agents against the challenge agent and save the mean rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, flags)
		},
	}
	bindEvaluateFlags(cmd, flags)
	return cmd
}

func bindEvaluateFlags(cmd *cobra.Command, flags *evaluateFlags) {
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringSliceVar(&flags.clients, "clients", nil, "environment endpoints as host:port, one per role")
	cmd.Flags().StringVar(&flags.agent100k, "agent-100k", "", "agent server URL of the 100k checkpoint")
	cmd.Flags().StringVar(&flags.agent500k, "agent-500k", "", "agent server URL of the 500k checkpoint")
	cmd.Flags().StringVar(&flags.output, "output", "", "results file path")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func loadEvaluateConfig(cmd *cobra.Command, flags *evaluateFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if cmd.Flags().Changed("clients") {
		cfg.Clients = flags.clients
	}
	if cmd.Flags().Changed("agent-100k") {
		cfg.Agents.Agent100k = flags.agent100k
	}
	if cmd.Flags().Changed("agent-500k") {
		cfg.Agents.Agent500k = flags.agent500k
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flags.output
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runEvaluate(cmd *cobra.Command, flags *evaluateFlags) error {
	cfg, err := loadEvaluateConfig(cmd, flags)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	clients, err := environment.ParseEndpoints(cfg.Clients)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var instruments *metrics.Instruments
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		instruments, err = metrics.NewInstruments(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		srv := serveMetrics(cfg.MetricsAddr, reg)
		defer srv.Close()
	}

	evaluator, err := experiments.NewEvaluator(
		clients,
		agent.NewRemoteAgent(cfg.Agents.Agent100k),
		agent.NewRemoteAgent(cfg.Agents.Agent500k),
		environment.NewSymbolicStateBuilder(),
		experiments.WithReadyTimeout(cfg.ReadyTimeout),
		experiments.WithStopTimeout(cfg.StopTimeout),
		experiments.WithInstruments(instruments),
		experiments.WithLoopOptions(
			engine.WithResetRetries(cfg.ResetRetries),
			engine.WithResetInterval(cfg.ResetInterval),
		),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	runErr := evaluator.Run(ctx)
	if runErr != nil {
		log.Error().Err(runErr).Msg("evaluation failed")
	} else {
		log.Info().Dur("took", time.Since(start)).Msg("evaluation completed")
	}

	// Whatever was collected is still worth saving.
	if err := evaluator.Save(cfg.Output); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to save results: %w", err))
	}
	return runErr
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info().Msgf("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return srv
}
