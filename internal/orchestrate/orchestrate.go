// Package orchestrate is the Orchestrator (spec §4.10, C10): a
// bounded-concurrency worker pool driving the full pipeline over the
// persistent queue, with per-host serialisation, per-entry deadlines, a
// sliding-window circuit breaker, and graceful stop. Generalized from the
// teacher's MainCrawler/DomainCrawler: MainCrawler.semaphore becomes the
// fixed-size pool directly, and DomainCrawler's per-domain wg/ctx becomes
// per-lease.
package orchestrate

import (
	"context"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"legalcrawl/internal/assemble"
	"legalcrawl/internal/config"
	"legalcrawl/internal/discover"
	crawlerrors "legalcrawl/internal/errors"
	"legalcrawl/internal/extract"
	"legalcrawl/internal/fetch"
	"legalcrawl/internal/logging"
	"legalcrawl/internal/model"
	"legalcrawl/internal/preflight"
	"legalcrawl/internal/section"
	"legalcrawl/internal/store"
	"legalcrawl/internal/structured"
)

// Orchestrator drives the pipeline. One Orchestrator serves one crawl run.
type Orchestrator struct {
	cfg       *config.Config
	logger    *logging.Logger
	st        *store.Store
	checker   *preflight.Checker
	fetcher   *fetch.Fetcher
	runID     string

	hostLocks sync.Map // string(registered domain) -> *sync.Mutex

	breaker *circuitBreaker

	poolMu sync.Mutex
	poolCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an Orchestrator wired to the already-constructed
// collaborators (store, preflight checker, fetcher) produced by
// cmd/legalcrawl. runID tags every CrawlResult this Orchestrator
// produces (spec §3); the caller mints one per process invocation. No
// package-level mutable state is used here (spec §9's no-singleton
// redesign flag), so two Orchestrators in the same process — e.g. in
// tests — never share or clobber each other's run identifier.
func New(cfg *config.Config, logger *logging.Logger, st *store.Store, checker *preflight.Checker, fetcher *fetch.Fetcher, runID string) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		st:      st,
		checker: checker,
		fetcher: fetcher,
		runID:   runID,
		breaker: newCircuitBreaker(cfg.ErrorBudgetThreshold, cfg.ErrorBudgetWindow, cfg.CircuitBreakerPause),
	}
	o.poolCh = make(chan struct{}, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		o.poolCh <- struct{}{}
	}
	return o
}

// Run starts cfg.Workers worker goroutines and blocks until a stop
// condition fires (ctx cancelled or the stop sentinel file appears); an
// empty queue makes workers sleep and poll again, not exit (spec §4.10).
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go o.watchStopSentinel(runCtx, cancel)

	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker(runCtx, i)
	}
	o.wg.Wait()
	return nil
}

// watchStopSentinel implements the sentinel-file half of spec §4.10's
// stop conditions, ported from original_source/src/crawler.py's
// Path("STOP").exists() poll in its run() loop.
func (o *Orchestrator) watchStopSentinel(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.cfg.StopSentinelPath == "" {
				continue
			}
			if _, err := os.Stat(o.cfg.StopSentinelPath); err == nil {
				o.logger.Info("stop sentinel detected, winding down", map[string]interface{}{"path": o.cfg.StopSentinelPath})
				cancel()
				return
			}
		}
	}
}

// worker repeatedly leases one queue entry, processes it end to end, and
// backs off with jitter when the queue is empty (spec §4.10).
func (o *Orchestrator) worker(ctx context.Context, id int) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.poolCh:
		}

		if o.breaker.paused() {
			o.poolCh <- struct{}{}
			o.breaker.waitOut(ctx)
			continue
		}

		entries, err := o.st.Lease(ctx, 1, o.cfg.LeaseTTL)
		if err != nil || len(entries) == 0 {
			o.poolCh <- struct{}{}
			if ctx.Err() != nil {
				return
			}
			o.sleepJittered(ctx)
			continue
		}
		entry := entries[0]

		lock := o.lockFor(entry.Domain)
		if !lock.TryLock() {
			// Another worker holds this host; defer rather than block
			// (spec §4.10 "workers that lease a domain whose host is
			// currently held must defer").
			_ = o.st.Release(ctx, entry.Domain)
			o.poolCh <- struct{}{}
			continue
		}

		o.processEntry(ctx, entry)
		lock.Unlock()
		o.poolCh <- struct{}{}
	}
}

func (o *Orchestrator) sleepJittered(ctx context.Context) {
	base := 2 * time.Second
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	select {
	case <-ctx.Done():
	case <-time.After(base + jitter):
	}
}

func (o *Orchestrator) lockFor(domain string) *sync.Mutex {
	actual, _ := o.hostLocks.LoadOrStore(domain, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// processEntry runs the full pipeline for one leased domain under a
// per-entry deadline (spec §4.10 "Cancellation"), completing the queue
// entry with the most specific terminal status observed. An entry that
// fails because the run itself was stopped is released back to PENDING.
func (o *Orchestrator) processEntry(parent context.Context, entry model.QueueEntry) {
	ctx, cancel := context.WithTimeout(parent, o.cfg.PerEntryDeadline)
	defer cancel()

	log := o.logger.With(map[string]interface{}{"domain": entry.Domain})
	log.Info("processing domain", nil)

	result, status, err := o.runPipeline(ctx, entry.Domain)
	if err != nil {
		log.Warn("pipeline failed", map[string]interface{}{"status": string(status), "error": err.Error()})
	}

	if err != nil && parent.Err() != nil {
		if relErr := o.st.Release(context.Background(), entry.Domain); relErr != nil {
			log.Error("failed to release lease", map[string]interface{}{"error": relErr.Error()})
		}
		return
	}

	if status == "" {
		if ctx.Err() != nil {
			status = model.StatusFailedConnection
		} else {
			status = model.StatusCompleted
		}
	}

	o.breaker.record(status == model.StatusCompleted)

	if completeErr := o.st.Complete(context.Background(), entry.Domain, result, status); completeErr != nil {
		log.Error("failed to persist result", map[string]interface{}{"error": completeErr.Error()})
	}
}

// runPipeline implements the data flow from spec §2: preflight -> fetch
// home -> discover legal links -> fetch legal page -> isolate section ->
// structured + pattern extraction -> assemble -> validate is embedded in
// assemble. Returns the assembled result (nil on early failure) and the
// terminal status to persist.
func (o *Orchestrator) runPipeline(ctx context.Context, domain string) (*model.CrawlResult, model.Status, error) {
	decision, err := o.checker.Check(ctx, domain)
	if err != nil {
		return nil, statusForError(err), err
	}

	homeURL := "https://" + decision.EffectiveHost + "/"
	home, err := o.fetcher.Fetch(ctx, homeURL, domain)
	if err != nil {
		return nil, statusForError(err), err
	}
	if looksParked(string(home.Body)) {
		return nil, model.StatusParked, &crawlerrors.ParkedDomain{Domain: domain}
	}

	candidates, err := discover.Discover(homeURL, string(home.Body), 5)
	if err != nil || len(candidates) == 0 {
		return nil, model.StatusFailedExtraction, &crawlerrors.ExtractionEmpty{Domain: domain}
	}

	var legalPage *fetch.Result
	var legalURL string
	for _, cand := range candidates {
		page, ferr := o.fetcher.Fetch(ctx, cand.URL, domain)
		if ferr != nil {
			continue
		}
		legalPage = page
		legalURL = cand.URL
		break
	}
	if legalPage == nil {
		return nil, model.StatusFailedExtraction, &crawlerrors.ExtractionEmpty{Domain: domain}
	}

	text, err := section.Isolate(string(legalPage.Body))
	if err != nil || strings.TrimSpace(text) == "" {
		return nil, model.StatusFailedExtraction, &crawlerrors.ExtractionEmpty{Domain: domain}
	}

	structuredCandidates, serr := structured.Extract(string(legalPage.Body))
	if serr != nil {
		structuredCandidates = nil
	}

	domainLabel := labelFor(domain)
	country := extract.DetectCountry(domain, text)
	countrySpecific, generic := extract.Dispatch(domain, domainLabel, text, country, o.cfg.CountryPatternSet)

	result, legalNameOK := assemble.Assemble(ctx, assemble.Input{
		Domain:          domain,
		DomainLabel:     domainLabel,
		LegalSourceURL:  legalURL,
		RunID:           o.runID,
		CrawledAt:       time.Now(),
		Structured:      structuredCandidates,
		CountrySpecific: countrySpecific,
		Generic:         generic,
		DetectedCountry: country,
		IsArchive:       legalPage.Tier == fetch.RenderArchive,
		MXCheck:         o.cfg.MXCheck,
		RobotsAllowed:   decision.Allowed,
		RobotsReason:    decision.RobotsReason,
	})

	if !legalNameOK {
		return result, model.StatusFailedExtraction, &crawlerrors.ExtractionEmpty{Domain: domain}
	}
	return result, model.StatusCompleted, nil
}

func labelFor(domain string) string {
	label := domain
	if idx := strings.Index(label, "."); idx > 0 {
		label = label[:idx]
	}
	return label
}

func looksParked(body string) bool {
	lower := strings.ToLower(body)
	markers := []string{"domain is for sale", "this domain may be for sale", "buy this domain", "parked free"}
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return len(strings.TrimSpace(body)) < 200
}

// statusForError maps a typed pipeline error to its terminal queue
// status (spec §7's error taxonomy to spec §3's status column).
func statusForError(err error) model.Status {
	switch err.(type) {
	case *crawlerrors.DNSFailure:
		return model.StatusFailedDNS
	case *crawlerrors.BlockedByRobots:
		return model.StatusBlockedRobots
	case *crawlerrors.BlockedByBlacklist:
		return model.StatusBlacklisted
	case *crawlerrors.ParkedDomain:
		return model.StatusParked
	case *crawlerrors.HTTPClientError:
		return model.StatusFailedHTTP4xx
	case *crawlerrors.HTTPServerError:
		return model.StatusFailedHTTP5xx
	case *crawlerrors.ConnectionFailure, *crawlerrors.Timeout, *crawlerrors.RenderFailure:
		return model.StatusFailedConnection
	case *crawlerrors.ExtractionEmpty:
		return model.StatusFailedExtraction
	default:
		return model.StatusFailedConnection
	}
}
