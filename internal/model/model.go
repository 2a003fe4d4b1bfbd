// Package model holds the data types shared across the crawl pipeline:
// the queue entry, the crawl result, and the per-field provenance wrapper
// that lets every stage attach a source and a confidence to a value
// without the stages knowing about each other.
package model

import "time"

// Status is a queue entry's lifecycle state. PENDING and PROCESSING are
// the only non-terminal values; every other value is terminal.
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusProcessing        Status = "PROCESSING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailedDNS         Status = "FAILED_DNS"
	StatusBlockedRobots     Status = "BLOCKED_ROBOTS"
	StatusBlacklisted       Status = "BLACKLISTED"
	StatusParked            Status = "PARKED"
	StatusFailedHTTP4xx     Status = "FAILED_HTTP_4XX"
	StatusFailedHTTP5xx     Status = "FAILED_HTTP_5XX"
	StatusFailedConnection  Status = "FAILED_CONNECTION"
	StatusFailedExtraction  Status = "FAILED_EXTRACTION"
)

// IsTerminal reports whether s is a terminal status (anything but PENDING
// or PROCESSING).
func (s Status) IsTerminal() bool {
	return s != StatusPending && s != StatusProcessing
}

// QueueEntry is one row of the domain queue (spec §3).
type QueueEntry struct {
	Domain         string
	Source         string
	Status         Status
	Attempts       int
	LeaseExpiresAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Field wraps a single extracted value with where it came from and how
// confident the producing pass was. The zero Field (Present=false) means
// "nothing was extracted for this field", distinct from an empty string
// that passed validation.
type Field struct {
	Value      string
	Source     string // "structured" | "pattern" | "ml-experimental"
	Confidence float64
	Present    bool
}

// NewField returns a present Field. Callers that have nothing to report
// simply leave the zero value in place.
func NewField(value, source string, confidence float64) Field {
	return Field{Value: value, Source: source, Confidence: confidence, Present: true}
}

// PersonList is an ordered list of people (directors, etc) with one
// shared provenance for the whole list, taken from the single pass that
// supplied it.
type PersonList struct {
	Values     []string
	Source     string
	Confidence float64
	Present    bool
}

// StringSet is a deduplicated set of strings (emails, phones) with shared
// provenance for the whole set.
type StringSet struct {
	Values     []string
	Source     string
	Confidence float64
	Present    bool
}

// CrawlResult is the immutable, fully-assembled record for one domain
// (spec §3). It is constructed exactly once, by the assembler, and never
// mutated afterward.
type CrawlResult struct {
	Domain         string
	LegalSourceURL string
	RunID          string
	CrawledAt      time.Time

	LegalName           Field
	LegalForm           Field
	RegistrationNumber  Field
	RegisterCourt       Field
	RegisterType        Field
	VATID               Field

	Street     Field
	PostalCode Field
	City       Field
	Country    Field

	CEO       Field
	Directors PersonList

	Emails StringSet
	Phones StringSet
	Fax    Field

	RobotsAllowed bool
	RobotsReason  string

	Confidence float64

	// Enrichment columns (C12). Populated only by the enrich pass, never
	// by the core pipeline, and never folded into Confidence above.
	WHOISRegistrar string
	WHOISCreatedAt time.Time
	RDAPOrgName    string
	Enriched       bool
}

// FieldNames enumerates the CrawlResult fields that carry independent
// provenance, in export column order. The assembler and the exporter
// keep their own field lists and do not read this one.
var FieldNames = []string{
	"legal_name", "legal_form", "registration_number", "register_court",
	"register_type", "vat_id", "street", "postal_code", "city", "country",
	"ceo", "directors", "emails", "phones", "fax",
}

// Candidates is what each extraction pass (structured, country-specific,
// generic) produces for one page: a set of fields it is willing to
// contribute, all carrying the same Source tag.
type Candidates struct {
	Source string

	LegalName          Field
	LegalForm          Field
	RegistrationNumber Field
	RegisterCourt      Field
	RegisterType       Field
	VATID              Field
	Street             Field
	PostalCode         Field
	City               Field
	Country            Field
	CEO                Field
	Directors          []string
	Emails             []string
	Phones             []string
	Fax                Field
}
