// Command legalcrawl is the CLI entrypoint, adapted from the teacher's
// CLIFlags/parseFlags/main: it wires config, logging, the store, and the
// pipeline collaborators together behind four subcommands (crawl, export,
// enrich, reset) instead of the teacher's single fixed run mode.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"legalcrawl/internal/config"
	"legalcrawl/internal/enrich"
	"legalcrawl/internal/export"
	"legalcrawl/internal/fetch"
	"legalcrawl/internal/logging"
	"legalcrawl/internal/model"
	"legalcrawl/internal/orchestrate"
	"legalcrawl/internal/preflight"
	"legalcrawl/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: legalcrawl <crawl|export|enrich|reset> [flags]")
		os.Exit(2)
	}

	subcommand := os.Args[1]
	switch subcommand {
	case "crawl":
		runCrawl(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "enrich":
		runEnrich(os.Args[2:])
	case "reset":
		runReset(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", subcommand)
		os.Exit(2)
	}
}

func loadConfigAndLogger(fs *flag.FlagSet, args []string) (*config.Config, *logging.Logger) {
	configPath := fs.String("config", "", "path to YAML config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logger config: %v\n", err)
		os.Exit(2)
	}
	return cfg, logger
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) *store.Store {
	journalPath := cfg.DSN + ".journal"
	st, err := store.Open(ctx, cfg.DSN, journalPath, logger)
	if err != nil {
		logger.Error("failed to open store", map[string]interface{}{"error": err.Error()})
		os.Exit(3)
	}
	return st
}

// runCrawl implements the `legalcrawl crawl` subcommand: seed the queue
// from -seed (if given), then drive the Orchestrator until a graceful
// stop (spec §4.10).
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	seedFile := fs.String("seed", "", "path to newline-delimited domains file to enqueue before crawling")
	cfg, logger := loadConfigAndLogger(fs, args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := openStore(ctx, cfg, logger)
	defer st.Close()

	if *seedFile != "" {
		domains, err := loadDomains(*seedFile)
		if err != nil {
			logger.Error("failed to load seed file", map[string]interface{}{"error": err.Error()})
			os.Exit(2)
		}
		for _, domain := range domains {
			if err := st.Enqueue(ctx, domain, "seed"); err != nil {
				logger.Warn("failed to enqueue domain", map[string]interface{}{"domain": domain, "error": err.Error()})
			}
		}
		logger.Info("seeded domains", map[string]interface{}{"count": len(domains)})
	}

	checker := preflight.New(cfg, logger, cfg.Blacklist)
	fetcher, err := fetch.New(cfg, logger, cfg.ProxyPool, nil)
	if err != nil {
		logger.Error("failed to build fetcher", map[string]interface{}{"error": err.Error()})
		os.Exit(2)
	}

	orch := orchestrate.New(cfg, logger, st, checker, fetcher, newRunID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, stopping gracefully", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	if err := orch.Run(ctx); err != nil {
		logger.Error("crawl run failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	stats, err := st.SnapshotStats(ctx)
	if err == nil {
		fields := make(map[string]interface{}, len(stats))
		for status, count := range stats {
			fields[string(status)] = count
		}
		logger.Info("crawl finished", fields)
	}
}

// runExport implements `legalcrawl export`.
func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outPath := fs.String("out", "", "output file path (default: timestamped in current directory)")
	format := fs.String("export-format", "", "override configured export format (csv|xlsx)")
	cfg, logger := loadConfigAndLogger(fs, args)

	if *format != "" {
		cfg.ExportFormat = *format
	}

	ctx := context.Background()
	st := openStore(ctx, cfg, logger)
	defer st.Close()

	path := *outPath
	if path == "" {
		path = export.DefaultFilename(cfg.ExportFormat, time.Now())
	}

	n, err := export.Export(ctx, st, cfg, path)
	if err != nil {
		logger.Error("export failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("export complete", map[string]interface{}{"rows": n, "path": path})
}

// runEnrich implements `legalcrawl enrich` (spec §4.12): a separate pass,
// never invoked by the Orchestrator.
func runEnrich(args []string) {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	cfg, logger := loadConfigAndLogger(fs, args)

	ctx := context.Background()
	st := openStore(ctx, cfg, logger)
	defer st.Close()

	n, err := enrich.Enrich(ctx, st, logger)
	if err != nil {
		logger.Error("enrichment failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("enrichment complete", map[string]interface{}{"enriched": n})
}

// runReset implements `legalcrawl reset`: bulk-transitions the named
// terminal statuses back to PENDING (spec §4.1 reset).
func runReset(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	statusList := fs.String("status", "FAILED_DNS,FAILED_CONNECTION,FAILED_HTTP_5XX", "comma-separated statuses to reset to PENDING")
	cfg, logger := loadConfigAndLogger(fs, args)

	var statuses []model.Status
	for _, s := range strings.Split(*statusList, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			statuses = append(statuses, model.Status(s))
		}
	}

	ctx := context.Background()
	st := openStore(ctx, cfg, logger)
	defer st.Close()

	n, err := st.Reset(ctx, statuses)
	if err != nil {
		logger.Error("reset failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("reset complete", map[string]interface{}{"rows": n})
}

func loadDomains(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domains file: %w", err)
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		domain := strings.TrimSpace(scanner.Text())
		if domain != "" && !strings.HasPrefix(domain, "#") {
			domains = append(domains, domain)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan domains: %w", err)
	}
	return domains, nil
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "run-" + time.Now().UTC().Format("20060102T150405Z")
	}
	return "run-" + hex.EncodeToString(buf)
}
