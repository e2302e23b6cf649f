// Command mme runs the S1AP/ESM MME core as a standalone process,
// wiring together the engine, the ESM deactivation table, the admin
// read surface and the metrics server. Grounded on the teacher's SMF
// entrypoint (nf/smf/cmd/main.go): flag-parsed config path, zap
// logging, a metrics goroutine, an HTTP server goroutine, and
// signal-driven graceful shutdown.
//
// The real SCTP transport and ASN.1 codec, and the real MME-app/NAS
// collaborator, are external to this module (spec.md section 1); this
// command wires the in-memory fakes so the core runs standalone for
// local development and demos. A deployment wires its own transport,
// codec and Sink in place of these.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/mme-s1ap-core/common/metrics"
	"github.com/your-org/mme-s1ap-core/internal/admin"
	"github.com/your-org/mme-s1ap-core/internal/config"
	"github.com/your-org/mme-s1ap-core/internal/esm"
	"github.com/your-org/mme-s1ap-core/internal/logging"
	"github.com/your-org/mme-s1ap-core/internal/mmeapp"
	"github.com/your-org/mme-s1ap-core/internal/s1ap"
	"github.com/your-org/mme-s1ap-core/internal/transport"
)

func main() {
	configPath := flag.String("config", "config/mme.yaml", "Path to configuration file")
	metricsPort := flag.Int("metrics-port", 9095, "Prometheus metrics port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting MME S1AP/ESM core",
		zap.String("config", *configPath),
		zap.Int("served_plmns", len(cfg.Served.PLMNs)),
		zap.Int("served_tais", len(cfg.Served.TAIs)),
	)

	metricsServer := metrics.NewMetricsServer(*metricsPort, logger)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	defer metricsServer.Stop()
	metrics.SetServiceUp(true)
	defer metrics.SetServiceUp(false)

	sink := mmeapp.NewChannelSink(1024)
	go consumeEvents(sink, logger)

	engine := s1ap.NewEngine(cfg, transport.NewFakeTransport(), transport.FakeCodec{}, sink, logger)
	esmTable := esm.NewTable(cfg, loggingESMSink{logger: logger}, logger)

	adminServer := admin.NewServer(cfg, engine, esmTable, logger)

	gaugeTicker := time.NewTicker(10 * time.Second)
	defer gaugeTicker.Stop()
	go func() {
		for range gaugeTicker.C {
			engine.RefreshGauges()
		}
	}()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- adminServer.Start()
	}()

	logger.Info("MME S1AP/ESM core started",
		zap.String("admin_address", fmt.Sprintf("%s:%d", cfg.SBI.IPv4, cfg.SBI.Port)),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("admin server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := adminServer.Stop(ctx); err != nil {
			logger.Error("error during admin server shutdown", zap.Error(err))
		}
		logger.Info("MME S1AP/ESM core shutdown complete")
	}
}

// consumeEvents drains the channel sink and logs every northbound
// event. A real deployment replaces this loop with the MME-app/NAS
// collaborator's own dispatch.
func consumeEvents(sink *mmeapp.ChannelSink, logger *zap.Logger) {
	for ev := range sink.Events() {
		logger.Debug("northbound event",
			zap.Int("kind", int(ev.Kind)),
			zap.Uint32("mme_ue_id", uint32(ev.MMEUEID)),
			zap.Bool("has_mme_ue_id", ev.HasMMEUEID),
		)
	}
}

// loggingESMSink is a placeholder esm.Sink that logs instead of
// sending real NAS messages, standing in for the NAS/ESM transport
// collaborator this module does not implement.
type loggingESMSink struct {
	logger *zap.Logger
}

func (s loggingESMSink) SendDeactivateRequest(mmeUEID uint32, pti esm.TransactionID, ebi esm.BearerID, cause esm.Cause) {
	s.logger.Debug("ESM deactivate request",
		zap.Uint32("mme_ue_id", mmeUEID),
		zap.Uint8("pti", uint8(pti)),
		zap.Uint8("ebi", uint8(ebi)),
		zap.Int("cause", int(cause)),
	)
}

func (s loggingESMSink) NotifyDeactivationComplete(mmeUEID uint32, ebi esm.BearerID) {
	s.logger.Debug("ESM deactivation complete",
		zap.Uint32("mme_ue_id", mmeUEID),
		zap.Uint8("ebi", uint8(ebi)),
	)
}

func (s loggingESMSink) ReleaseBearer(mmeUEID uint32, ebi esm.BearerID) {
	s.logger.Debug("ESM bearer released",
		zap.Uint32("mme_ue_id", mmeUEID),
		zap.Uint8("ebi", uint8(ebi)),
	)
}
