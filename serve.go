package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pigchase/agent"
	"pigchase/config"
	"pigchase/meta"
)

func newServeAgentCmd() *cobra.Command {
	var (
		addr   string
		policy string
		name   string
		seed   uint64
		level  string
	)
	cmd := &cobra.Command{
		Use:   "serve-agent",
		Short: "Host a scripted agent over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(config.LogConfig{Level: level, Pretty: true})

			var a agent.Agent
			switch policy {
			case "challenge":
				a = agent.NewChallengeAgent(name, agent.WithSeed(seed))
			case "random":
				a = agent.NewRandomAgent(seed)
			default:
				return fmt.Errorf("unknown policy %q", policy)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{Addr: addr, Handler: agent.NewServer(a, nil).Handler()}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.Info().Msgf("serving %s agent %s on %s", policy, name, addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8100", "listen address")
	cmd.Flags().StringVar(&policy, "policy", "challenge", "agent policy: challenge or random")
	cmd.Flags().StringVar(&name, "name", meta.AgentNames[meta.RoleTrained], "agent name in the arena")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, 0 for time based")
	cmd.Flags().StringVar(&level, "log-level", "info", "log level")
	return cmd
}
