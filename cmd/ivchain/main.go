// Command ivchain solves implied volatilities for an option chain stored as CSV.
//
//	ivchain -in quotes.csv -out ivs.csv -as-of 2025-03-14T15:00:00Z -workers 8
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"ImpVol/internal/domain/models"
	"ImpVol/internal/services/ivsolver"
	"ImpVol/internal/usecase"
	"ImpVol/pkg/logger"
	"ImpVol/pkg/util"
)

type options struct {
	in      string
	out     string
	asOf    string
	workers int
	solver  models.SolverConfig
	verbose bool
}

func parseFlags(args []string) (options, error) {
	def := ivsolver.DefaultConfig()
	var o options
	fs := flag.NewFlagSet("ivchain", flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "", "input quotes CSV (required)")
	fs.StringVar(&o.out, "out", "-", "output CSV, - for stdout")
	fs.StringVar(&o.asOf, "as-of", "", "observation time, RFC3339 or unix seconds; default now")
	fs.IntVar(&o.workers, "workers", 8, "concurrent solves")
	fs.Float64Var(&o.solver.InitialVolLo, "vol-lo", def.InitialVolLo, "lower end of the volatility bracket")
	fs.Float64Var(&o.solver.InitialVolHi, "vol-hi", def.InitialVolHi, "initial upper end of the volatility bracket")
	fs.Float64Var(&o.solver.MaxVolHi, "max-vol-hi", def.MaxVolHi, "ceiling for bracket expansion")
	fs.Float64Var(&o.solver.AbsTol, "xtol", def.AbsTol, "absolute volatility tolerance")
	fs.Float64Var(&o.solver.RelTol, "rtol", def.RelTol, "relative volatility tolerance")
	fs.IntVar(&o.solver.MaxIterations, "max-iter", def.MaxIterations, "iteration budget per solve")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.in == "" {
		return o, errors.New("-in is required")
	}
	if err := ivsolver.ValidateConfig(o.solver); err != nil {
		return o, err
	}
	return o, nil
}

func main() {
	// IMPVOL_* values in a local .env are optional
	_ = godotenv.Load()

	o, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ivchain:", err)
		os.Exit(2)
	}
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, log, time.Now()); err != nil {
		log.Error("ivchain failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, log *logger.Logger, now time.Time) error {
	quotes, err := readQuotes(o.in)
	if err != nil {
		return err
	}
	observed := util.ParseTimeDefault(o.asOf, now)
	log.Info("solving chain",
		logger.String("in", o.in),
		logger.Int("quotes", len(quotes)),
		logger.String("as_of", observed.UTC().Format(time.RFC3339)),
		logger.Int("workers", o.workers))

	calc := usecase.NewIVCalculator(nil, 0, log)
	start := time.Now()
	recs, err := usecase.NewChainSolver(calc, o.workers).SolveChain(ctx, quotes, observed, o.solver)
	if err != nil {
		return err
	}

	if err := writeRecords(o.out, recs); err != nil {
		return err
	}

	summary := usecase.Summarize(recs)
	statuses := make([]string, 0, len(summary))
	for s := range summary {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		log.Info("status", logger.String("status", s), logger.Int("count", summary[models.SolveStatus(s)]))
	}
	for _, r := range recs {
		if !r.Converged() {
			log.Debug("unsolved quote", logger.String("symbol", r.Symbol), logger.String("status", string(r.Status)), logger.String("reason", r.Reason))
		}
	}
	log.Info("done", logger.Duration("elapsed_ms", time.Since(start)))
	return nil
}

func readQuotes(path string) ([]models.OptionQuote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var quotes []models.OptionQuote
	if err := gocsv.UnmarshalFile(f, &quotes); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return quotes, nil
}

func writeRecords(path string, recs []*models.IVRecord) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := gocsv.Marshal(recs, w); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}
