// Package ingest loads incident records from CSV and Excel files.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"

	"github.com/kamilpajak/incident-triage/pkg/triage"
)

// Column headers recognised in the input file, compared case-insensitively.
const (
	ColumnTicketID  = "Ticket ID"
	ColumnSummary   = "Resumen"
	ColumnNotes     = "Notas"
	ColumnCreatedAt = "Fecha Creacion"
)

// headerAliases maps normalised header names to canonical columns.
var headerAliases = map[string]string{
	"ticket id":      ColumnTicketID,
	"ticket_id":      ColumnTicketID,
	"resumen":        ColumnSummary,
	"notas":          ColumnNotes,
	"fecha creacion": ColumnCreatedAt,
	"fecha creación": ColumnCreatedAt,
	"fecha_creacion": ColumnCreatedAt,
}

// Excel serial day numbers accepted as dates (1900-01-01 to 9999-12-31).
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ErrNoHeader is returned for a file without a header row.
var ErrNoHeader = errors.New("input file has no header row")

// Loader reads incident files. The zero value is ready to use.
type Loader struct {
	// Now supplies the creation date of rows whose date cannot be parsed.
	Now func() time.Time
}

// Load reads path with a default Loader.
func Load(path string) ([]triage.IncidentRecord, error) {
	return Loader{}.Load(path)
}

// Load reads the records in path. Files ending in .xlsx or .xlsm are read as
// Excel workbooks (first sheet); anything else is read as CSV.
func (l Loader) Load(path string) ([]triage.IncidentRecord, error) {
	var rows [][]string
	var err error
	parseDate := ParseDate
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcel(path)
		parseDate = ParseExcelDate
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return l.records(rows, parseDate)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

// records maps data rows to IncidentRecords using the header row.
func (l Loader) records(rows [][]string, parseDate func(string) (time.Time, bool)) ([]triage.IncidentRecord, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	now := l.Now
	if now == nil {
		now = time.Now
	}

	cols := make(map[string]int)
	for i, name := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := headerAliases[key]; ok {
			if _, seen := cols[canonical]; !seen {
				cols[canonical] = i
			}
		}
	}

	records := make([]triage.IncidentRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		idx := len(records)
		cell := func(column string) string {
			i, ok := cols[column]
			if !ok || i >= len(row) {
				return ""
			}
			return cleanCell(row[i])
		}

		rec := triage.IncidentRecord{
			TicketID: cell(ColumnTicketID),
			Summary:  cell(ColumnSummary),
			Notes:    cell(ColumnNotes),
			Row:      i,
		}
		if rec.TicketID == "" {
			rec.TicketID = fmt.Sprintf("UNKNOWN_%d", idx)
		}
		created, ok := parseDate(cell(ColumnCreatedAt))
		if !ok {
			created = now()
		}
		rec.CreatedAt = created
		records = append(records, rec)
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cleanCell trims a cell and maps spreadsheet null markers to "".
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "nat", "null", "none":
		return ""
	}
	return s
}

// ParseDate parses s with any layout dateparse recognises. It reports false
// for blank or unparseable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseExcelDate parses a raw workbook cell. Numbers in the serial day range
// are Excel dates; anything else goes through ParseDate.
func ParseExcelDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return ParseDate(s)
}
