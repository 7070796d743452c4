package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/relay-orchestrator/pkg/config"
	"github.com/speedrun-hq/relay-orchestrator/pkg/intake"
	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
	"github.com/speedrun-hq/relay-orchestrator/pkg/poller"
	"github.com/speedrun-hq/relay-orchestrator/pkg/ratelimit"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
	"github.com/speedrun-hq/relay-orchestrator/pkg/submitter"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	s, err := store.New(cfg.DBPath, logg)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attestationLimiter := ratelimit.New(float64(cfg.AttestationRateBurst), cfg.AttestationRateRefill)

	p := poller.New(
		s,
		cfg.AttestationBaseURL,
		attestationLimiter,
		uint32(config.LocalDestinationDomain()),
		common.HexToAddress(cfg.RouterAddress),
		cfg.PollCycleInterval,
		cfg.AttestationTimeout,
		logg,
	)

	sub, err := submitter.New(
		ctx,
		s,
		cfg.EthereumRPCURL,
		cfg.TransmitterAddress,
		cfg.RelayerPrivateKey,
		cfg.RelayFee,
		cfg.MaxRetries,
		cfg.SubmitterPollInterval,
		logg,
	)
	if err != nil {
		log.Fatalf("Failed to create submitter: %v", err)
	}

	intakeServer := intake.New(s, intake.Config{
		Port:                 cfg.APIPort,
		SourceDomains:        cfg.SourceDomains,
		RateLimitBurst:       float64(cfg.IntakeRateLimitPerIP),
		RateLimitRefillPerIP: float64(cfg.IntakeRateLimitPerIP),
	}, logg)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logg.Info("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		sub.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		if err := intakeServer.Run(ctx); err != nil {
			logg.ErrorWithComponent(logger.Intake, "intake server stopped: %v", err)
		}
	}()

	logg.Info("relay orchestrator started")
	wg.Wait()
	logg.Info("relay orchestrator stopped")
}
