package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/policy"
	"github.com/bedecarroll/unet-sub002/internal/poller"
	"github.com/bedecarroll/unet-sub002/internal/snmp"
	"github.com/bedecarroll/unet-sub002/internal/snmp/oid"
	"github.com/bedecarroll/unet-sub002/internal/store"
	"github.com/bedecarroll/unet-sub002/internal/store/memstore"
	"github.com/bedecarroll/unet-sub002/internal/store/postgres"
)

var (
	pollInterval   time.Duration
	policyInterval time.Duration
	snmpCommunity  string
	snmpTimeout    time.Duration
	trapListenAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the policy scheduler and SNMP poller against the configured store",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&pollInterval, "poll-interval", 60*time.Second, "Default SNMP polling interval per node")
	serveCmd.Flags().DurationVar(&policyInterval, "policy-interval", 30*time.Second, "Policy orchestrator tick interval")
	serveCmd.Flags().StringVar(&snmpCommunity, "snmp-community", "public", "SNMPv2c community string used for all nodes")
	serveCmd.Flags().DurationVar(&snmpTimeout, "snmp-timeout", 5*time.Second, "Per-request SNMP timeout")
	serveCmd.Flags().StringVar(&trapListenAddr, "trap-listen", "", "Address to receive SNMP traps on (e.g. :162); empty disables the listener")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slogLog := newSlogLogger(LogLevel(logLevel))
	log := collab.NewSlogLogger(slogLog)

	st, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if metricsOn {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slogLog.Error("metrics server exited", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	policySrc := dirPolicySource{Dir: policyDir}
	registry, err := oid.NewRegistry()
	if err != nil {
		return fmt.Errorf("oid registry: %w", err)
	}

	pollSched, err := poller.NewScheduler(ctx, poller.Config{
		Clock:           clockwork.NewRealClock(),
		DefaultInterval: pollInterval,
		PollTimeout:     snmpTimeout,
		Store:           st,
		Pool:            snmp.NewPool(64),
		Registry:        registry,
		SessionConfig:   sessionConfigFor(snmpCommunity, snmpTimeout),
		Logger:          log,
	})
	if err != nil {
		return fmt.Errorf("poller scheduler: %w", err)
	}

	lastSeen := map[string]int{}
	orch := &policy.Orchestrator{
		Store:   st,
		Journal: policy.NewJournal(1000, 24*time.Hour),
		Logger:  log,
	}
	cache, err := policy.NewResultCache(5 * time.Minute)
	if err != nil {
		return fmt.Errorf("policy cache: %w", err)
	}
	orch.Cache = cache

	policySched, err := policy.NewScheduler(policy.SchedulerConfig{
		Clock:        clockwork.NewRealClock(),
		Interval:     policyInterval,
		PolicySource: policySrc,
		DirtyNodeQuery: func(ctx context.Context) ([]string, error) {
			return policy.DirtyNodesSince(ctx, st, lastSeen)
		},
	}, orch, log)
	if err != nil {
		return fmt.Errorf("policy scheduler: %w", err)
	}

	var traps *snmp.TrapObserver
	if trapListenAddr != "" {
		traps = &snmp.TrapObserver{Community: snmpCommunity, Logger: log}
		go func() {
			if err := traps.Listen(trapListenAddr); err != nil {
				slogLog.Error("trap listener exited", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			traps.Close()
		}()
	}

	slogLog.Info("unetd serving", "store", storeBackend, "poll_interval", pollInterval, "policy_interval", policyInterval)

	errCh := make(chan error, 2)
	go func() { errCh <- pollSched.Run(ctx) }()
	go func() { errCh <- policySched.Run(ctx) }()

	<-ctx.Done()
	pollSched.Shutdown()
	// Both schedulers observe ctx cancellation on their own tick loops; drain
	// their exits so a non-nil error from either is still surfaced.
	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openStore(ctx context.Context) (store.Store, func(), error) {
	switch storeBackend {
	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required when --store=postgres")
		}
		st, err := postgres.Open(ctx, postgres.Config{DSN: postgresDSN, Logger: newSlogLogger(LogLevel(logLevel))})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, func() { st.Close() }, nil
	case "memory", "":
		return memstore.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown --store %q (want memory or postgres)", storeBackend)
	}
}

// sessionConfigFor builds the poller's SessionConfigFor: every node polls
// over SNMPv2c with the CLI-supplied community string, since credential
// storage is explicitly out of scope for the core.
func sessionConfigFor(community string, timeout time.Duration) poller.SessionConfigFor {
	return func(n *model.Node) (snmp.Config, error) {
		return snmp.Config{
			Target:    n.MgmtAddr.String(),
			Version:   snmp.VersionV2c,
			Community: community,
			Timeout:   timeout,
		}, nil
	}
}
