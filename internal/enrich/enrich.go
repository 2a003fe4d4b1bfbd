// Package enrich is the Enrichment pass (spec §4.12, C12): an optional,
// separate step over already-COMPLETED domains that adds WHOIS/RDAP
// registration metadata without touching queue state or the core
// confidence model. Invoked only by the `legalcrawl enrich` subcommand,
// never by the Orchestrator (spec §9 Open Question (a)).
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"legalcrawl/internal/logging"
	"legalcrawl/internal/store"
)

const (
	rdapBootstrapURL = "https://rdap.org/domain/"
	requestTimeout    = 10 * time.Second
	whoisTimeout      = 10 * time.Second
)

// Enrich walks every COMPLETED domain lacking enrichment columns,
// preferring RDAP (structured, machine-readable) and falling back to
// plain WHOIS only when RDAP has nothing for that registry — mirroring
// original_source/src/rdap_client.py preferring RDAP over
// whois_enricher.py's plain-text WHOIS. Failures are logged and skipped.
func Enrich(ctx context.Context, st *store.Store, logger *logging.Logger) (int, error) {
	rows, err := st.ListCompleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("list completed results: %w", err)
	}

	client := &http.Client{Timeout: requestTimeout}
	enriched := 0
	for _, r := range rows {
		if r.Enriched {
			continue
		}
		log := logger.With(map[string]interface{}{"domain": r.Domain})

		registrar, createdAt, rdapOrg, err := lookupRDAP(ctx, client, r.Domain)
		if err != nil {
			log.Warn("rdap lookup failed, falling back to whois", map[string]interface{}{"error": err.Error()})
			registrar, createdAt, err = lookupWHOIS(ctx, r.Domain)
			if err != nil {
				log.Warn("whois lookup failed, skipping enrichment", map[string]interface{}{"error": err.Error()})
				continue
			}
		}

		if err := st.SaveEnrichment(ctx, r.Domain, registrar, createdAt, rdapOrg); err != nil {
			log.Error("failed to save enrichment", map[string]interface{}{"error": err.Error()})
			continue
		}
		enriched++
	}
	return enriched, nil
}

// rdapResponse is the subset of the RDAP domain response this pass
// reads, ported from rdap_client.py's _parse_rdap_response.
type rdapResponse struct {
	Entities []struct {
		Roles      []string `json:"roles"`
		Handle     string   `json:"handle"`
		VcardArray []interface{} `json:"vcardArray"`
	} `json:"entities"`
	Events []struct {
		EventAction string `json:"eventAction"`
		EventDate   string `json:"eventDate"`
	} `json:"events"`
}

func lookupRDAP(ctx context.Context, client *http.Client, domain string) (registrar string, createdAt time.Time, org string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rdapBootstrapURL+domain, nil)
	if err != nil {
		return "", time.Time{}, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, "", fmt.Errorf("rdap returned status %d", resp.StatusCode)
	}

	var data rdapResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", time.Time{}, "", fmt.Errorf("decode rdap response: %w", err)
	}

	for _, entity := range data.Entities {
		if containsRole(entity.Roles, "registrar") {
			registrar = vcardField(entity.VcardArray, "fn")
			if registrar == "" {
				registrar = entity.Handle
			}
		}
		if containsRole(entity.Roles, "registrant") {
			org = vcardField(entity.VcardArray, "org")
		}
	}
	for _, event := range data.Events {
		if event.EventAction == "registration" {
			createdAt, _ = time.Parse(time.RFC3339, event.EventDate)
		}
	}
	return registrar, createdAt, org, nil
}

func containsRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// vcardField extracts a named property from an RDAP jCard array
// (vcardArray[1] is the list of [name, params, type, value] tuples).
func vcardField(vcard []interface{}, name string) string {
	if len(vcard) < 2 {
		return ""
	}
	properties, ok := vcard[1].([]interface{})
	if !ok {
		return ""
	}
	for _, prop := range properties {
		fields, ok := prop.([]interface{})
		if !ok || len(fields) < 4 {
			continue
		}
		if key, ok := fields[0].(string); ok && key == name {
			if value, ok := fields[3].(string); ok {
				return value
			}
		}
	}
	return ""
}

// whoisServers maps a TLD to its authoritative WHOIS server, the
// fallback path for registries RDAP doesn't cover (original's note that
// .at/.ch "often return unstructured text").
var whoisServers = map[string]string{
	"com": "whois.verisign-grs.com",
	"net": "whois.verisign-grs.com",
	"org": "whois.pir.org",
	"de":  "whois.denic.de",
	"at":  "whois.nic.at",
	"ch":  "whois.nic.ch",
	"uk":  "whois.nic.uk",
	"fr":  "whois.nic.fr",
	"it":  "whois.nic.it",
	"es":  "whois.nic.es",
}

var (
	whoisRegistrarLine = regexp.MustCompile(`(?i)registrar:\s*(.+)`)
	whoisCreatedLine   = regexp.MustCompile(`(?i)(?:creation date|created|registered)[:\s]+([0-9]{4}-[0-9]{2}-[0-9]{2})`)
)

// lookupWHOIS speaks the raw WHOIS protocol (RFC 3912: a TCP connection
// to port 43, newline-terminated query, plain-text response) directly,
// since no pack example ships a WHOIS client library (see DESIGN.md).
func lookupWHOIS(ctx context.Context, domain string) (registrar string, createdAt time.Time, err error) {
	tld := domain
	if idx := strings.LastIndex(domain, "."); idx >= 0 {
		tld = domain[idx+1:]
	}
	server, ok := whoisServers[tld]
	if !ok {
		return "", time.Time{}, fmt.Errorf("no known whois server for .%s", tld)
	}

	dialer := net.Dialer{Timeout: whoisTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", server+":43")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("dial whois server %s: %w", server, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(whoisTimeout))
	if _, err := conn.Write([]byte(domain + "\r\n")); err != nil {
		return "", time.Time{}, fmt.Errorf("send whois query: %w", err)
	}

	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, readErr := conn.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if readErr != nil {
			break
		}
	}

	text := sb.String()
	if m := whoisRegistrarLine.FindStringSubmatch(text); m != nil {
		registrar = strings.TrimSpace(m[1])
	}
	if m := whoisCreatedLine.FindStringSubmatch(text); m != nil {
		createdAt, _ = time.Parse("2006-01-02", m[1])
	}
	if registrar == "" && createdAt.IsZero() {
		return "", time.Time{}, fmt.Errorf("no parseable fields in whois response for %s", domain)
	}
	return registrar, createdAt, nil
}
