package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charterdesk/recon-engine/internal/config"
	"github.com/charterdesk/recon-engine/internal/data/mongo"
	"github.com/charterdesk/recon-engine/internal/data/postgres"
	"github.com/charterdesk/recon-engine/internal/domain/outbox"
	"github.com/charterdesk/recon-engine/internal/domain/run"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
	"github.com/charterdesk/recon-engine/internal/logger"
	"github.com/charterdesk/recon-engine/internal/platform/messaging/producers"
	"github.com/charterdesk/recon-engine/internal/platform/persistence"
	"github.com/charterdesk/recon-engine/internal/recon"
	"github.com/charterdesk/recon-engine/internal/recon/publisher"
)

const dateLayout = "2006-01-02"

func main() {
	var (
		mode      = flag.String("mode", "preview", "run mode: preview or apply")
		fromStr   = flag.String("from", "", "start of entry date range, YYYY-MM-DD (open if empty)")
		toStr     = flag.String("to", "", "end of entry date range, YYYY-MM-DD (open if empty)")
		refs      = flag.String("refs", "", "charter ref LIKE pattern, e.g. R2% (all if empty)")
		floor     = flag.String("floor", "HIGH", "minimum confidence to apply: HIGH or MEDIUM")
		amountTol = flag.Float64("amount-tolerance", 0, "override relative amount tolerance, e.g. 0.05")
		dateWin   = flag.Int("date-window", 0, "override generic date window in days")
		nameSim   = flag.Float64("name-similarity", 0, "override name similarity floor, 0..1")
		noDrain   = flag.Bool("no-drain", false, "skip publishing pending link events after an apply run")
	)
	flag.Parse()

	// Cancel the sweep on SIGINT/SIGTERM; the current record transaction
	// still commits or rolls back whole.
	appCtx, cancelAppCtx := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("reconcile")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	applyMatchingOverrides(&cfg.Matching, *amountTol, *dateWin, *nameSim)

	log := logger.NewLogger(cfg)

	params := recon.Params{
		Mode:          shared.Mode(*mode),
		CharterRefPat: *refs,
		ApplyFloor:    shared.Confidence(*floor),
	}
	if *fromStr != "" {
		from, err := time.Parse(dateLayout, *fromStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -from date %q: %v\n", *fromStr, err)
			os.Exit(2)
		}
		params.DateFrom = from
	}
	if *toStr != "" {
		to, err := time.Parse(dateLayout, *toStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -to date %q: %v\n", *toStr, err)
			os.Exit(2)
		}
		params.DateTo = to
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoDB.Close(closeCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}()

	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	paymentRepo := postgres.NewPaymentRepository(log, postgresDB)
	charterRepo := postgres.NewCharterRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	runRepo := postgres.NewRunRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	engine := recon.NewEngine(
		recon.NewGenerator(ledgerRepo, paymentRepo, &cfg.Matching),
		recon.NewScorer(&cfg.Matching),
		recon.NewApplier(postgresDB, ledgerRepo, paymentRepo, outboxRepo, auditRepo, log),
		recon.NewRecalculator(postgresDB, charterRepo, paymentRepo, log),
		paymentRepo,
		ledgerRepo,
		runRepo,
		&cfg.Matching,
		log,
	)

	log.Info("Starting reconciliation sweep",
		"mode", *mode,
		"floor", *floor,
		"amount_tolerance", cfg.Matching.AmountTolerancePct,
		"date_window_days", cfg.Matching.DateWindowDays,
	)

	rn, err := engine.Run(appCtx, params)
	if err != nil {
		log.Error("Reconciliation sweep failed", "error", err)
		os.Exit(1)
	}

	printSummary(rn)

	if params.Mode == shared.ModeApply && !*noDrain {
		if err := drainOutbox(appCtx, cfg, log, outboxRepo); err != nil {
			log.Error("Outbox drain failed", "error", err)
			os.Exit(1)
		}
	}
}

// drainOutbox publishes the link events written during this run (and any
// leftovers from earlier interrupted runs)
// applyMatchingOverrides lets command line flags tighten or loosen the
// configured tolerances for a single run. Zero means keep the config value.
func applyMatchingOverrides(m *config.MatchingConfig, amountTol float64, dateWin int, nameSim float64) {
	if amountTol > 0 {
		m.AmountTolerancePct = amountTol
	}
	if dateWin > 0 {
		m.DateWindowDays = dateWin
	}
	if nameSim > 0 {
		m.NameSimilarityMin = nameSim
	}
}

func drainOutbox(ctx context.Context, cfg *config.Config, log *slog.Logger, outboxRepo outbox.Repository) error {
	producer, err := producers.NewLinkEventProducer(ctx, log, &cfg.Kafka)
	if err != nil {
		return fmt.Errorf("failed to initialize link event producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Error("Error closing Kafka producer", "error", err)
		}
	}()

	drainer, err := publisher.NewDrainer(&cfg.Outbox, cfg.Publisher.PoolSize, outboxRepo, producer, log)
	if err != nil {
		return fmt.Errorf("failed to initialize outbox drainer: %w", err)
	}
	defer drainer.Close()

	published, failed, err := drainer.Drain(ctx)
	if err != nil {
		return err
	}
	log.Info("Outbox drain finished", "published", published, "failed", failed)
	return nil
}

// printSummary writes the run tallies to stdout; logs stay on stderr
func printSummary(rn *run.Run) {
	fmt.Printf("run %s (%s, floor %s)\n", rn.ID, rn.Mode, rn.ConfidenceFloor)
	fmt.Printf("  selector:         %s\n", rn.Selector)
	fmt.Printf("  linked:           %d (%s)\n", rn.Linked, rn.LinkedAmount.StringFixed(2))
	fmt.Printf("  already linked:   %d\n", rn.AlreadyLinked)
	fmt.Printf("  ambiguous:        %d\n", rn.Ambiguous)
	fmt.Printf("  unmatched:        %d (%s)\n", rn.Unmatched, rn.UnmatchedAmount.StringFixed(2))
	fmt.Printf("  errored:          %d\n", rn.Errored)
	if rn.CompletedAt != nil {
		fmt.Printf("  duration:         %s\n", rn.CompletedAt.Sub(rn.StartedAt).Round(time.Millisecond))
	}
}
