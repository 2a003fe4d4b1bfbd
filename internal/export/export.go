// Package export is the Exporter (spec §4.11, C11): projects stored
// CrawlResult rows to a fixed-column tabular output, CSV mandatory and
// xlsx optional, in Strict or Permissive profile. Ported from
// original_source/src/enhanced_storage.py's export_enhanced_to_csv.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"legalcrawl/internal/config"
	"legalcrawl/internal/model"
	"legalcrawl/internal/store"
)

// columns is the deterministic export column order (spec §6): the
// mandatory entity fields, each paired with its *_source/*_confidence
// companion where the field carries independent provenance.
var columns = []string{
	"domain", "legal_source_url", "run_id", "crawled_at",
	"legal_name", "legal_name_source", "legal_name_confidence",
	"legal_form", "legal_form_source", "legal_form_confidence",
	"registration_number", "registration_number_source", "registration_number_confidence",
	"register_court", "register_type", "vat_id",
	"street", "street_source", "street_confidence",
	"postal_code", "city", "country",
	"ceo", "directors",
	"emails", "emails_source", "emails_confidence",
	"phones", "phones_source", "phones_confidence",
	"fax",
	"robots_allowed", "robots_reason", "confidence",
	"whois_registrar", "whois_created_at", "rdap_org_name", "enriched",
}

// mandatoryFields is the Strict profile's completeness gate (spec §4.11,
// §6): a row missing any of these is dropped rather than emitted with
// blanks.
var mandatoryFields = []string{"legal_name", "street", "postal_code", "city", "country"}

// Export writes every COMPLETED result to outPath in the configured
// format ("csv" or "xlsx"), applying the profile's row filter. Returns
// the number of rows written.
func Export(ctx context.Context, st *store.Store, cfg *config.Config, outPath string) (int, error) {
	rows, err := st.ListCompleted(ctx)
	if err != nil {
		return 0, fmt.Errorf("list completed results: %w", err)
	}

	var selected []model.CrawlResult
	var dropped int
	for _, r := range rows {
		if cfg.ExportProfile == config.ExportStrict && !satisfiesMandatory(&r) {
			dropped++
			continue
		}
		selected = append(selected, r)
	}

	switch cfg.ExportFormat {
	case "xlsx":
		err = exportXLSX(selected, outPath)
	default:
		err = exportCSV(selected, outPath)
	}
	if err != nil {
		return 0, err
	}
	return len(selected), nil
}

// DefaultFilename builds a timestamped output filename (spec §4.11,
// §6's "timestamped filenames" requirement).
func DefaultFilename(format string, now time.Time) string {
	return fmt.Sprintf("legalcrawl-export-%s.%s", now.UTC().Format("20060102T150405Z"), format)
}

func satisfiesMandatory(r *model.CrawlResult) bool {
	return r.LegalName.Present && r.Street.Present && r.PostalCode.Present && r.City.Present && r.Country.Present
}

// exportCSV writes the CSV output with a UTF-8 BOM prefix (spec §4.11,
// matching the original's utf-8-sig encoding) for Excel compatibility.
func exportCSV(rows []model.CrawlResult, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(rowValues(&r)); err != nil {
			return fmt.Errorf("write row for %s: %w", r.Domain, err)
		}
	}
	w.Flush()
	return w.Error()
}

// exportXLSX writes the optional xlsx profile (spec §4.11 flag
// -export-format=xlsx), exercising the teacher's already-imported
// excelize dependency.
func exportXLSX(rows []model.CrawlResult, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	for rowIdx, r := range rows {
		values := rowValues(&r)
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(outPath)
}

// rowValues projects one CrawlResult into the columns slice's order. Set
// fields are ';'-joined within their cell (spec §4.11).
func rowValues(r *model.CrawlResult) []string {
	return []string{
		r.Domain, r.LegalSourceURL, r.RunID, timeString(r.CrawledAt),
		r.LegalName.Value, r.LegalName.Source, confString(r.LegalName),
		r.LegalForm.Value, r.LegalForm.Source, confString(r.LegalForm),
		r.RegistrationNumber.Value, r.RegistrationNumber.Source, confString(r.RegistrationNumber),
		r.RegisterCourt.Value, r.RegisterType.Value, r.VATID.Value,
		r.Street.Value, r.Street.Source, confString(r.Street),
		r.PostalCode.Value, r.City.Value, r.Country.Value,
		r.CEO.Value, strings.Join(r.Directors.Values, ";"),
		strings.Join(r.Emails.Values, ";"), r.Emails.Source, setConfString(r.Emails),
		strings.Join(r.Phones.Values, ";"), r.Phones.Source, setConfString(r.Phones),
		r.Fax.Value,
		strconv.FormatBool(r.RobotsAllowed), r.RobotsReason, strconv.FormatFloat(r.Confidence, 'f', 3, 64),
		r.WHOISRegistrar, timeString(r.WHOISCreatedAt), r.RDAPOrgName, strconv.FormatBool(r.Enriched),
	}
}

func confString(f model.Field) string {
	if !f.Present {
		return ""
	}
	return strconv.FormatFloat(f.Confidence, 'f', 3, 64)
}

func setConfString(s model.StringSet) string {
	if !s.Present {
		return ""
	}
	return strconv.FormatFloat(s.Confidence, 'f', 3, 64)
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
