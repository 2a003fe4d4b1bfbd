// Package fetch is the Fetcher (spec §4.3, C3): page acquisition with a
// direct -> proxy -> archive fallback ladder, retry/backoff, and
// per-host politeness. The direct-tier HTTP client is the teacher's
// HTTPClient (custom Transport, gzip/deflate decompression, charset
// conversion), extended with redirect-downgrade protection and wired to
// a per-host rate.Limiter plus a cenkalti/backoff/v4 retry ladder.
package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"legalcrawl/internal/config"
	crawlerrors "legalcrawl/internal/errors"
	"legalcrawl/internal/logging"
)

// RenderMode tags how a page's body was obtained.
type RenderMode string

const (
	RenderRaw     RenderMode = "raw"
	RenderDirect  RenderMode = "direct"
	RenderProxy   RenderMode = "proxy"
	RenderArchive RenderMode = "archive"
)

// Result is what Fetch returns on success.
type Result struct {
	StatusCode  int
	FinalURL    string
	Body        []byte
	ContentType string
	Charset     string
	Tier        RenderMode
}

// Renderer is the optional browser-rendering collaborator (spec §6). No
// concrete implementation ships with this repository. Fetch does not call
// it, even when one is given: a Result's Tier is always RenderDirect,
// RenderProxy or RenderArchive, and RenderRaw is never produced.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Fetcher is the C3 collaborator.
type Fetcher struct {
	cfg      *config.Config
	logger   *logging.Logger
	client   *http.Client
	proxies  *proxyPool
	renderer Renderer

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// New builds a Fetcher. proxyURLs is the configured proxy pool (spec
// §6's proxy_pool); an empty pool disables the proxy tier.
func New(cfg *config.Config, logger *logging.Logger, proxyURLs []string, renderer Renderer) (*Fetcher, error) {
	proxies, err := newProxyPool(cfg, proxyURLs)
	if err != nil {
		return nil, fmt.Errorf("build proxy pool: %w", err)
	}
	f := &Fetcher{
		cfg:      cfg,
		logger:   logger,
		client:   newHTTPClient(cfg, nil),
		proxies:  proxies,
		renderer: renderer,
		limiters: make(map[string]*rate.Limiter),
	}
	return f, nil
}

// nextUserAgent picks a random entry from cfg.FetchUserAgents (spec §4.3
// "rotated User-Agent from a curated pool"), ported from the teacher's
// stealth_middleware.py rotate_user_agent ("random.choice(USER_AGENTS)").
// Falls back to the fixed robots-check identity if the pool is empty.
// math/rand's package-level functions are safe for concurrent use.
func (f *Fetcher) nextUserAgent() string {
	pool := f.cfg.FetchUserAgents
	if len(pool) == 0 {
		return f.cfg.UserAgent
	}
	return pool[rand.Intn(len(pool))]
}

func newHTTPClient(cfg *config.Config, proxyURL *url.URL) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig:       &tls.Config{},
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("too many redirects")
			}
			if len(via) > 0 && via[0].URL.Scheme == "https" && req.URL.Scheme == "http" {
				return fmt.Errorf("refusing https->http redirect downgrade")
			}
			return nil
		},
	}
}

// limiterFor returns the shared rate.Limiter for host, which spaces
// requests by min_delay; Fetch adds a random wait of up to cfg.Jitter on
// top, together giving spec §4.3's "block until now >= last_request_at +
// min_delay + jitter".
// Repurposes golang.org/x/time/rate, a teacher dependency that was
// imported but never actually used in the copied source.
func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.limiterMu.Lock()
	defer f.limiterMu.Unlock()
	if l, ok := f.limiters[host]; ok {
		return l
	}
	every := f.cfg.MinDelay
	if every <= 0 {
		every = time.Second
	}
	l := rate.NewLimiter(rate.Every(every), 1)
	f.limiters[host] = l
	return l
}

// Slow halves a host's request rate (doubling its delay); Fetch calls it
// when the direct tier ends in a 429 or 503 response (spec §4.3
// "increased multiplicatively on 429/503").
func (f *Fetcher) Slow(host string) {
	l := f.limiterFor(host)
	l.SetLimit(l.Limit() / 2)
}

// Fetch runs the direct -> proxy -> archive ladder for urlStr. host is
// the registered domain used for politeness and limiter bucketing.
func (f *Fetcher) Fetch(ctx context.Context, urlStr, host string) (*Result, error) {
	if err := f.limiterFor(host).Wait(ctx); err != nil {
		return nil, &crawlerrors.Cancelled{Domain: host}
	}
	if f.cfg.Jitter > 0 {
		select {
		case <-ctx.Done():
			return nil, &crawlerrors.Cancelled{Domain: host}
		case <-time.After(time.Duration(rand.Int63n(int64(f.cfg.Jitter)))):
		}
	}

	res, err := f.fetchWithRetry(ctx, f.client, urlStr, RenderDirect)
	if err == nil {
		return res, nil
	}
	if ce, ok := err.(*crawlerrors.HTTPClientError); ok && ce.Status == 429 {
		f.Slow(host)
	} else if se, ok := err.(*crawlerrors.HTTPServerError); ok && se.Status == 503 {
		f.Slow(host)
	}
	if !f.cfg.ArchiveFallback && f.proxies.empty() {
		return nil, err
	}

	if res, perr := f.fetchViaProxies(ctx, urlStr); perr == nil {
		return res, nil
	} else if perr != errNoProxyAvailable {
		err = perr
	}

	if f.cfg.ArchiveFallback {
		res, aerr := f.fetchFromArchive(ctx, urlStr)
		if aerr == nil {
			return res, nil
		}
		err = aerr
	}

	return nil, err
}

// errNoProxyAvailable means every configured proxy is currently
// quarantined; the caller should fall through to the archive tier
// without treating it as that tier's failure reason.
var errNoProxyAvailable = fmt.Errorf("no proxy available")

// fetchViaProxies tries the proxy pool's fair-acquisition rotation (spec
// §5 "round-robin with health scoring; failing proxies are quarantined
// for a cooldown"), acquiring one healthy proxy per attempt up to the
// size of the pool, so a single bad entry at the front of the list is
// not retried on every fetch.
func (f *Fetcher) fetchViaProxies(ctx context.Context, urlStr string) (*Result, error) {
	if f.proxies.empty() {
		return nil, errNoProxyAvailable
	}

	var lastErr error = errNoProxyAvailable
	for attempt := 0; attempt < len(f.proxies.entries); attempt++ {
		entry := f.proxies.acquire()
		if entry == nil {
			break
		}
		res, err := f.fetchWithRetry(ctx, entry.client, urlStr, RenderProxy)
		if err == nil {
			entry.recordSuccess()
			return res, nil
		}
		entry.recordFailure()
		lastErr = err
	}
	return nil, lastErr
}

// fetchWithRetry wraps a single tier's fetchOnce in a cenkalti/backoff/v4
// exponential retry, stopping at MaxRetries and only retrying transient
// errors (spec §4.3 ladder, §7 error policy).
func (f *Fetcher) fetchWithRetry(ctx context.Context, client *http.Client, urlStr string, tier RenderMode) (*Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.BackoffBase
	b.Multiplier = f.cfg.BackoffFactor
	b.MaxInterval = f.cfg.BackoffCap
	bctx := backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.cfg.MaxRetries)), ctx)

	var result *Result
	operation := func() error {
		r, err := f.fetchOnce(ctx, client, urlStr, tier)
		if err == nil {
			result = r
			return nil
		}
		if isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, bctx); err != nil {
		if perr, ok := err.(*backoff.PermanentError); ok {
			return nil, perr.Err
		}
		return nil, err
	}
	return result, nil
}

func isRetryable(err error) bool {
	switch err.(type) {
	case *crawlerrors.ConnectionFailure, *crawlerrors.HTTPServerError, *crawlerrors.Timeout, *crawlerrors.RenderFailure:
		return true
	}
	if httpErr, ok := err.(*crawlerrors.HTTPClientError); ok {
		return httpErr.Status == 429
	}
	return false
}

func (f *Fetcher) fetchOnce(ctx context.Context, client *http.Client, urlStr string, tier RenderMode) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &crawlerrors.Timeout{URL: urlStr}
		}
		return nil, &crawlerrors.ConnectionFailure{URL: urlStr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &crawlerrors.HTTPServerError{URL: urlStr, Status: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return nil, &crawlerrors.HTTPClientError{URL: urlStr, Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isAllowedContentType(contentType, f.cfg.AllowedContentTypes) {
		return nil, &crawlerrors.HTTPClientError{URL: urlStr, Status: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, f.cfg.MaxBodyBytes)
	reader, closer, err := decompress(limited, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, &crawlerrors.ConnectionFailure{URL: urlStr, Err: err}
	}
	if closer != nil {
		defer closer.Close()
	}

	body, err := io.ReadAll(reader)
	if err != nil && len(body) == 0 {
		return nil, &crawlerrors.ConnectionFailure{URL: urlStr, Err: err}
	}
	if int64(len(body)) >= f.cfg.MaxBodyBytes {
		return nil, &crawlerrors.HTTPClientError{URL: urlStr, Status: resp.StatusCode}
	}

	cs := detectCharset(contentType, body)
	body = convertToUTF8(body, cs)

	return &Result{
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		Body:        body,
		ContentType: contentType,
		Charset:     cs,
		Tier:        tier,
	}, nil
}

func isAllowedContentType(contentType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, a := range allowed {
		if ct == strings.ToLower(a) {
			return true
		}
	}
	return false
}

func decompress(r io.Reader, encodingHeader string) (io.Reader, io.Closer, error) {
	switch encodingHeader {
	case "gzip":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gzr, gzr, nil
	case "deflate":
		fr := flate.NewReader(r)
		return fr, fr, nil
	default:
		return r, nil, nil
	}
}

// waybackAvailable is the shape of archive.org's Availability API
// response, just enough to pull the closest snapshot's URL.
type waybackAvailable struct {
	ArchivedSnapshots struct {
		Closest struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// fetchFromArchive is C3 tier 3: ask the Wayback Availability API for the
// closest snapshot, then fetch it with a plain GET. No pack example
// talks to an archive service, so this is a small stdlib-only client
// rather than a named dependency (see DESIGN.md).
func (f *Fetcher) fetchFromArchive(ctx context.Context, urlStr string) (*Result, error) {
	apiURL := "http://archive.org/wayback/available?url=" + url.QueryEscape(urlStr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build wayback request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &crawlerrors.ConnectionFailure{URL: apiURL, Err: err}
	}
	defer resp.Body.Close()

	var avail waybackAvailable
	if err := json.NewDecoder(resp.Body).Decode(&avail); err != nil {
		return nil, fmt.Errorf("decode wayback response: %w", err)
	}
	if !avail.ArchivedSnapshots.Closest.Available || avail.ArchivedSnapshots.Closest.URL == "" {
		return nil, &crawlerrors.ConnectionFailure{URL: urlStr, Err: fmt.Errorf("no archive snapshot available")}
	}

	result, err := f.fetchOnce(ctx, f.client, avail.ArchivedSnapshots.Closest.URL, RenderArchive)
	if err != nil {
		return nil, err
	}
	return result, nil
}
