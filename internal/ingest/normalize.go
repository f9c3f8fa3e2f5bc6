package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/AngelCh415/leadsync/internal/models"
)

// Column headers of the lead tracker export, matched after trimming.
const (
	colDateAdded    = "Date Added"
	colBusinessName = "Business Name"
	colBusiness     = "Business"
	colContactName  = "Contact Name"
	colPhone        = "Phone"
	colEmail        = "Email"
	colBusinessType = "Business Type"
	colLocation     = "Location"
	colSource       = "Source"
	colStatus       = "Status"
	colNotes        = "Notes"
	colNextAction   = "Next Action"
	colFollowUpDate = "Follow-up Date"
	colPriority     = "Priority"
	colMapURL       = "Google Maps URL"
)

// ParseStats reports what happened to the rows of one export.
type ParseStats struct {
	Rows      int // data records read
	Dropped   int // rows without a business name
	Malformed int // records the CSV reader could not decode
}

// NormalizeRow builds a Lead from one header-keyed row. ok is false when the
// row has no business name; that is the only reason a row is rejected.
func NormalizeRow(row map[string]string) (models.Lead, bool) {
	get := func(col string) string { return strings.TrimSpace(row[col]) }

	name := get(colBusinessName)
	if name == "" {
		name = get(colBusiness)
	}
	if name == "" {
		return models.Lead{}, false
	}

	dateAdded := get(colDateAdded)
	phone := get(colPhone)
	return models.Lead{
		ID:           name + "-" + dateAdded + "-" + phone,
		DateAdded:    dateAdded,
		BusinessName: name,
		ContactName:  get(colContactName),
		Phone:        phone,
		Email:        get(colEmail),
		BusinessType: get(colBusinessType),
		Location:     get(colLocation),
		Source:       get(colSource),
		Status:       get(colStatus),
		Notes:        get(colNotes),
		NextAction:   get(colNextAction),
		FollowUpDate: get(colFollowUpDate),
		Priority:     get(colPriority),
		MapURL:       get(colMapURL),
	}, true
}

// ParseLeads decodes a CSV export with a header row. Blank lines are skipped,
// short rows leave the missing columns empty, and records the reader rejects
// are counted and skipped. An empty body yields no leads and no error.
func ParseLeads(r io.Reader) ([]models.Lead, ParseStats, error) {
	var stats ParseStats

	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.Lead{}, stats, nil
		}
		return nil, stats, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	leads := make([]models.Lead, 0)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.Malformed++
				continue
			}
			return leads, stats, err
		}

		stats.Rows++
		lead, ok := NormalizeRow(rowMap(header, rec))
		if !ok {
			stats.Dropped++
			continue
		}
		leads = append(leads, lead)
	}
	return leads, stats, nil
}

// ParseLeadsString is ParseLeads over an in-memory export.
func ParseLeadsString(s string) ([]models.Lead, ParseStats, error) {
	return ParseLeads(strings.NewReader(s))
}

// rowMap keys a record by header. The first column with a given name wins and
// values past the last header are ignored.
func rowMap(header, rec []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, h := range header {
		if i >= len(rec) {
			break
		}
		if _, dup := row[h]; dup {
			continue
		}
		row[h] = rec[i]
	}
	return row
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, len(utf8BOM))
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return io.MultiReader(bytes.NewReader(buf[:n]), r)
	}
	if bytes.Equal(buf, utf8BOM) {
		return r
	}
	return io.MultiReader(bytes.NewReader(buf), r)
}
