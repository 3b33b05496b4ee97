package ingestion

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/klauspost/compress/zstd"
)

// ErrMissingColumns is returned when a file carries none of the known transaction columns,
// which usually means a wrong file or delimiter.
var ErrMissingColumns = errors.New("no known transaction columns in header")

// nullTokens are cell values treated as empty, matching common CSV exports.
var nullTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
}

// candidate delimiters, in order of preference
var delimiters = []rune{',', ';', '\t', '|'}

// parseFile opens path (transparently decompressing *.zst) and parses it.
func parseFile(path string) (models.RawBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return models.RawBatch{}, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return parse(r)
}

// parse reads a delimited stream with a header row into a RawBatch.
//
// It tolerates:
//   - header names in any case and with surrounding spaces
//   - unknown extra columns (ignored)
//   - short rows (missing cells become nil)
//   - null tokens such as "", "NA", "null" (become nil)
//
// It fails on:
//   - an empty stream or a header with no known column
//   - malformed quoting
func parse(r io.Reader) (models.RawBatch, error) {
	var batch models.RawBatch

	br := bufio.NewReader(r)
	headerLine, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return batch, fmt.Errorf("read header: %w", err)
	}
	headerLine = strings.TrimPrefix(headerLine, "\ufeff")
	if strings.TrimSpace(headerLine) == "" {
		return batch, fmt.Errorf("read header: %w", io.ErrUnexpectedEOF)
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(headerLine), br))
	cr.Comma = sniffDelimiter(headerLine)
	cr.FieldsPerRecord = -1 // rows may be short; missing cells are nulls
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return batch, fmt.Errorf("read header: %w", err)
	}

	// column name -> position in the record
	index := make(map[string]int)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		for _, known := range models.RawColumns {
			if name == known {
				if _, dup := index[known]; !dup {
					index[known] = i
				}
			}
		}
	}
	if len(index) == 0 {
		return batch, fmt.Errorf("%w: %v", ErrMissingColumns, header)
	}
	for _, c := range models.RawColumns {
		if _, ok := index[c]; ok {
			batch.Columns = append(batch.Columns, c)
		}
	}

	cell := func(rec []string, col string) *string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return nil
		}
		v := strings.TrimSpace(rec[i])
		if _, isNull := nullTokens[strings.ToLower(v)]; isNull {
			return nil
		}
		return &v
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return batch, fmt.Errorf("read line after %d: %w", line, err)
		}
		line++

		// skip fully blank lines that survived the csv reader
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		batch.Rows = append(batch.Rows, models.RawTransaction{
			TransactionID:     cell(rec, models.ColTransactionID),
			BankID:            cell(rec, models.ColBankID),
			CustomerID:        cell(rec, models.ColCustomerID),
			TransactionDate:   cell(rec, models.ColTransactionDate),
			TransactionAmount: cell(rec, models.ColTransactionAmount),
		})
	}

	return batch, nil
}

// sniffDelimiter picks the candidate delimiter that occurs most often in the header.
func sniffDelimiter(header string) rune {
	best, bestCount := delimiters[0], 0
	for _, d := range delimiters {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
