package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"famledger-server/src/models"
)

// FileResult holds the rows of one uploaded file that survived parsing.
type FileResult struct {
	Name       string
	Candidates []models.Candidate
	Skipped    int
}

// ValidateFileName rejects anything that is not named like a CSV export.
func ValidateFileName(name string) error {
	if name == "" || !strings.EqualFold(filepath.Ext(name), ".csv") {
		return fmt.Errorf("%w: %q", ErrInvalidFileType, name)
	}
	return nil
}

// ParseFile reads a CSV export with a header row. A bad row, including one with
// fewer cells than the header such as a totals footer, is logged and skipped. Only a
// header or stream that cannot be read fails the whole file.
func ParseFile(log zerolog.Logger, name string, r io.Reader, at models.AccountType) (*FileResult, error) {
	if err := ValidateFileName(name); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	dec := gocsv.NewSimpleDecoderFromCSVReader(reader)

	res := &FileResult{Name: name}
	header, err := dec.GetCSVRow()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnreadableFile, name, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	// header is line 1
	for line := 2; ; line++ {
		record, err := dec.GetCSVRow()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Warn().Err(err).Str("file", name).Int("line", line).Msg("Skipping CSV row")
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrUnreadableFile, name, err)
		}

		c, err := MapRow(rowMap(header, record), at)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Int("line", line).Msg("Skipping CSV row")
			res.Skipped++
			continue
		}
		res.Candidates = append(res.Candidates, c)
	}

	log.Debug().
		Str("file", name).
		Int("parsed", len(res.Candidates)).
		Int("skipped", res.Skipped).
		Msg("Parsed CSV file")
	return res, nil
}

const utf8BOM = "\ufeff"

// rowMap keys the record by header. Cells past the end of a short record are left
// out so the mapper reports them as missing columns.
func rowMap(header, record []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(record) {
			row[h] = record[i]
		}
	}
	return row
}
