package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"legalcrawl/internal/model"
)

// upsertResult writes a CrawlResult into the results table, keyed on the
// unique domain column, replacing any prior row for the same domain.
// Set-valued fields (directors, emails, phones) are ';'-joined the same
// way the exporter serialises them into a single cell (spec §4.11).
func upsertResult(ctx context.Context, tx *sqlx.Tx, r *model.CrawlResult) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO results (
			domain, run_id, legal_source_url, crawled_at,
			legal_name, legal_name_source, legal_name_confidence,
			legal_form, legal_form_source, legal_form_confidence,
			registration_number, registration_number_source, registration_number_confidence,
			register_court, register_type, vat_id,
			street, street_source, street_confidence,
			postal_code, city, country, address_source, address_confidence,
			ceo, directors,
			emails, emails_source, emails_confidence,
			phones, phones_source, phones_confidence,
			fax,
			robots_allowed, robots_reason, confidence,
			whois_registrar, whois_created_at, rdap_org_name, enriched
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?,
			?, ?, ?,
			?, ?, ?,
			?,
			?, ?, ?,
			?, ?, ?, ?
		)
		ON CONFLICT(domain) DO UPDATE SET
			run_id=excluded.run_id, legal_source_url=excluded.legal_source_url, crawled_at=excluded.crawled_at,
			legal_name=excluded.legal_name, legal_name_source=excluded.legal_name_source, legal_name_confidence=excluded.legal_name_confidence,
			legal_form=excluded.legal_form, legal_form_source=excluded.legal_form_source, legal_form_confidence=excluded.legal_form_confidence,
			registration_number=excluded.registration_number, registration_number_source=excluded.registration_number_source, registration_number_confidence=excluded.registration_number_confidence,
			register_court=excluded.register_court, register_type=excluded.register_type, vat_id=excluded.vat_id,
			street=excluded.street, street_source=excluded.street_source, street_confidence=excluded.street_confidence,
			postal_code=excluded.postal_code, city=excluded.city, country=excluded.country,
			address_source=excluded.address_source, address_confidence=excluded.address_confidence,
			ceo=excluded.ceo, directors=excluded.directors,
			emails=excluded.emails, emails_source=excluded.emails_source, emails_confidence=excluded.emails_confidence,
			phones=excluded.phones, phones_source=excluded.phones_source, phones_confidence=excluded.phones_confidence,
			fax=excluded.fax,
			robots_allowed=excluded.robots_allowed, robots_reason=excluded.robots_reason, confidence=excluded.confidence
	`,
		r.Domain, r.RunID, r.LegalSourceURL, r.CrawledAt,
		r.LegalName.Value, r.LegalName.Source, r.LegalName.Confidence,
		r.LegalForm.Value, r.LegalForm.Source, r.LegalForm.Confidence,
		r.RegistrationNumber.Value, r.RegistrationNumber.Source, r.RegistrationNumber.Confidence,
		r.RegisterCourt.Value, r.RegisterType.Value, r.VATID.Value,
		r.Street.Value, r.Street.Source, r.Street.Confidence,
		r.PostalCode.Value, r.City.Value, r.Country.Value, r.Street.Source, r.Street.Confidence,
		r.CEO.Value, strings.Join(r.Directors.Values, ";"),
		strings.Join(r.Emails.Values, ";"), r.Emails.Source, r.Emails.Confidence,
		strings.Join(r.Phones.Values, ";"), r.Phones.Source, r.Phones.Confidence,
		r.Fax.Value,
		r.RobotsAllowed, r.RobotsReason, r.Confidence,
		r.WHOISRegistrar, nullableTime(r.WHOISCreatedAt), r.RDAPOrgName, r.Enriched,
	)
	return err
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return t
}

// LoadResult fetches the CrawlResult for domain, or (nil, sql.ErrNoRows)
// if none exists yet. Nothing in this repository calls it; the enrichment
// pass (C12) and the exporter read through ListCompleted.
func (s *Store) LoadResult(ctx context.Context, domain string) (*model.CrawlResult, error) {
	var row resultRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM results WHERE domain = ?`, domain)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// ListCompleted returns every domain whose queue status is COMPLETED,
// joined to its result row, for the exporter (C11) and enrichment (C12)
// to iterate over without re-implementing the join in two places.
func (s *Store) ListCompleted(ctx context.Context) ([]model.CrawlResult, error) {
	var rows []resultRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.* FROM results r
		JOIN queue q ON q.domain = r.domain
		WHERE q.status = 'COMPLETED'
		ORDER BY r.domain`)
	if err != nil {
		return nil, err
	}
	out := make([]model.CrawlResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toModel())
	}
	return out, nil
}

// resultRow is the flat SQL projection of CrawlResult; toModel folds it
// back into the provenance-carrying shape the rest of the pipeline uses.
type resultRow struct {
	Domain             string         `db:"domain"`
	RunID              sql.NullString `db:"run_id"`
	LegalSourceURL     sql.NullString `db:"legal_source_url"`
	CrawledAt          sql.NullTime   `db:"crawled_at"`
	LegalName          sql.NullString `db:"legal_name"`
	LegalNameSource    sql.NullString `db:"legal_name_source"`
	LegalNameConf      sql.NullFloat64 `db:"legal_name_confidence"`
	LegalForm          sql.NullString `db:"legal_form"`
	LegalFormSource    sql.NullString `db:"legal_form_source"`
	LegalFormConf      sql.NullFloat64 `db:"legal_form_confidence"`
	RegistrationNumber sql.NullString `db:"registration_number"`
	RegNumSource       sql.NullString `db:"registration_number_source"`
	RegNumConf         sql.NullFloat64 `db:"registration_number_confidence"`
	RegisterCourt      sql.NullString `db:"register_court"`
	RegisterType       sql.NullString `db:"register_type"`
	VATID              sql.NullString `db:"vat_id"`
	Street             sql.NullString `db:"street"`
	StreetSource       sql.NullString `db:"street_source"`
	StreetConf         sql.NullFloat64 `db:"street_confidence"`
	PostalCode         sql.NullString `db:"postal_code"`
	City               sql.NullString `db:"city"`
	Country            sql.NullString `db:"country"`
	CEO                sql.NullString `db:"ceo"`
	Directors          sql.NullString `db:"directors"`
	Emails             sql.NullString `db:"emails"`
	EmailsSource       sql.NullString `db:"emails_source"`
	EmailsConf         sql.NullFloat64 `db:"emails_confidence"`
	Phones             sql.NullString `db:"phones"`
	PhonesSource       sql.NullString `db:"phones_source"`
	PhonesConf         sql.NullFloat64 `db:"phones_confidence"`
	Fax                sql.NullString `db:"fax"`
	RobotsAllowed      sql.NullBool   `db:"robots_allowed"`
	RobotsReason       sql.NullString `db:"robots_reason"`
	Confidence         sql.NullFloat64 `db:"confidence"`
	WHOISRegistrar     sql.NullString `db:"whois_registrar"`
	WHOISCreatedAt     sql.NullTime   `db:"whois_created_at"`
	RDAPOrgName        sql.NullString `db:"rdap_org_name"`
	Enriched           sql.NullBool   `db:"enriched"`
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

func (row resultRow) toModel() *model.CrawlResult {
	r := &model.CrawlResult{
		Domain:         row.Domain,
		RunID:          row.RunID.String,
		LegalSourceURL: row.LegalSourceURL.String,
		CrawledAt:      row.CrawledAt.Time,

		LegalName:          model.Field{Value: row.LegalName.String, Source: row.LegalNameSource.String, Confidence: row.LegalNameConf.Float64, Present: row.LegalName.Valid},
		LegalForm:          model.Field{Value: row.LegalForm.String, Source: row.LegalFormSource.String, Confidence: row.LegalFormConf.Float64, Present: row.LegalForm.Valid},
		RegistrationNumber: model.Field{Value: row.RegistrationNumber.String, Source: row.RegNumSource.String, Confidence: row.RegNumConf.Float64, Present: row.RegistrationNumber.Valid},
		RegisterCourt:      model.Field{Value: row.RegisterCourt.String, Present: row.RegisterCourt.Valid},
		RegisterType:       model.Field{Value: row.RegisterType.String, Present: row.RegisterType.Valid},
		VATID:              model.Field{Value: row.VATID.String, Present: row.VATID.Valid},
		Street:             model.Field{Value: row.Street.String, Source: row.StreetSource.String, Confidence: row.StreetConf.Float64, Present: row.Street.Valid},
		PostalCode:         model.Field{Value: row.PostalCode.String, Present: row.PostalCode.Valid},
		City:               model.Field{Value: row.City.String, Present: row.City.Valid},
		Country:            model.Field{Value: row.Country.String, Present: row.Country.Valid},
		CEO:                model.Field{Value: row.CEO.String, Present: row.CEO.Valid},
		Directors:          model.PersonList{Values: splitNonEmpty(row.Directors.String), Present: row.Directors.Valid},
		Emails:             model.StringSet{Values: splitNonEmpty(row.Emails.String), Source: row.EmailsSource.String, Confidence: row.EmailsConf.Float64, Present: row.Emails.Valid},
		Phones:             model.StringSet{Values: splitNonEmpty(row.Phones.String), Source: row.PhonesSource.String, Confidence: row.PhonesConf.Float64, Present: row.Phones.Valid},
		Fax:                model.Field{Value: row.Fax.String, Present: row.Fax.Valid},
		RobotsAllowed:      row.RobotsAllowed.Bool,
		RobotsReason:       row.RobotsReason.String,
		Confidence:         row.Confidence.Float64,
		WHOISRegistrar:     row.WHOISRegistrar.String,
		WHOISCreatedAt:     row.WHOISCreatedAt.Time,
		RDAPOrgName:        row.RDAPOrgName.String,
		Enriched:           row.Enriched.Bool,
	}
	return r
}

// SaveEnrichment writes C12's WHOIS/RDAP columns without touching any
// core entity field or the queue's terminal status.
func (s *Store) SaveEnrichment(ctx context.Context, domain, registrar string, createdAt time.Time, rdapOrg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE results SET whois_registrar=?, whois_created_at=?, rdap_org_name=?, enriched=1 WHERE domain=?`,
		registrar, nullableTime(createdAt), rdapOrg, domain)
	return err
}
