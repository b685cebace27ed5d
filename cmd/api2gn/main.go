// Command api2gn imports occurrence records from external provider APIs
// into a GeoNature-style synthese store.
//
//	api2gn list
//	api2gn run <provider> [-config FILE] [-dry-run] [-limit N]
//	    [-species a,b] [-min-date D] [-max-date D]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/basileandre056/api2gn/internal/config"
	_ "github.com/basileandre056/api2gn/internal/connector/gbif"
	_ "github.com/basileandre056/api2gn/internal/connector/plantnet"
	"github.com/basileandre056/api2gn/internal/parser"
	"github.com/basileandre056/api2gn/internal/pipeline"
	"github.com/basileandre056/api2gn/internal/synthese"
	"github.com/basileandre056/api2gn/internal/taxon"
	"github.com/basileandre056/api2gn/pkg/logging"
	"github.com/basileandre056/api2gn/pkg/metrics"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "list":
		for _, name := range parser.DefaultRegistry().List() {
			fmt.Println(name)
		}
		return 0
	case "run":
		return runImport(args[1:])
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  api2gn list")
	fmt.Fprintln(os.Stderr, "  api2gn run <provider> [flags]")
}

func runImport(args []string) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(os.Stderr, "run: missing provider name")
		return 2
	}
	provider := args[0]

	flags := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := flags.String("config", "api2gn.yml", "configuration file")
	dryRun := flags.Bool("dry-run", false, "map and validate records without writing")
	limit := flags.Int("limit", 0, "cap the number of records processed")
	species := flags.String("species", "", "comma-separated scientific name filter")
	minDate := flags.String("min-date", "", "lower observation date bound")
	maxDate := flags.String("max-date", "", "upper observation date bound")
	flags.Parse(args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	level := logLevel(cfg.LogLevel)
	log := logging.New("api2gn", level)
	for _, warning := range cfg.Warnings() {
		log.Warn(warning, nil)
	}

	p, err := parser.DefaultRegistry().Create(provider, cfg.ProviderSettings(provider))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	p.ApplyOverrides(overrides(cfg, *species, *minDate, *maxDate))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg, *dryRun)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer cleanup()

	resolver := taxon.NewResolver(store, taxon.NewRemoteClient(cfg.TaxrefAPIURL), log)
	collector := metrics.NewCollector("api2gn", prometheus.DefaultRegisterer)
	runner := pipeline.NewRunner(store, resolver, log, collector)

	opts := pipeline.Options{
		DryRun:     *dryRun,
		Limit:      cfg.MaxData,
		MaxRecords: cfg.MaxRecords,
		Tries:      cfg.Tries,
		RetrySleep: cfg.RetrySleep,
		Permissive: cfg.Permissive(),
	}
	if *limit > 0 {
		opts.Limit = *limit
	}

	stats, err := runner.Run(ctx, p, opts)
	printSummary(provider, stats, *dryRun)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// openStore connects the persistent store, or an in-memory one for dry
// runs without a database.
func openStore(ctx context.Context, cfg *config.Config, dryRun bool) (synthese.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		if !dryRun {
			return nil, nil, fmt.Errorf("database_url is not configured; use -dry-run or set API2GN_DATABASE_URL")
		}
		return synthese.NewMemStore(), func() {}, nil
	}

	store, err := synthese.NewPGStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("database unreachable: %w", err)
	}
	return store, store.Close, nil
}

func overrides(cfg *config.Config, species, minDate, maxDate string) parser.RunOverrides {
	ov := parser.RunOverrides{
		MinEventDate: minDate,
		MaxEventDate: maxDate,
		GeometryJSON: cfg.GeometryJSON,
	}
	if species != "" {
		for _, s := range strings.Split(species, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				ov.SpeciesFilter = append(ov.SpeciesFilter, trimmed)
			}
		}
	}
	return ov
}

func printSummary(provider string, stats *pipeline.RunStatistics, dryRun bool) {
	header := "Import summary"
	if dryRun {
		header = "Import summary (dry run)"
	}
	fmt.Printf("\n[%s] %s\n", provider, header)
	fmt.Printf("  imported:            %d\n", stats.Imported)
	fmt.Printf("  rejected:            %d\n", stats.Rejected)
	fmt.Printf("    no taxon match:    %d\n", stats.RejectedNoTaxon)
	fmt.Printf("    invalid date:      %d\n", stats.RejectedBadDate)
	fmt.Printf("  duplicates dropped:  %d\n", stats.Deduplicated)
	fmt.Printf("  taxa matched local:  %d\n", stats.ResolvedLocal)
	fmt.Printf("  taxa matched remote: %d\n", stats.ResolvedRemote)
	fmt.Printf("  pages fetched:       %d\n", stats.Pages)
	if stats.Truncated {
		fmt.Println("  run truncated at the configured record bound")
	}
}

func logLevel(name string) logging.Level {
	switch strings.ToLower(name) {
	case "debug":
		return logging.DebugLevel
	case "warn":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}
