package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidate separators, in preference order on ties
var csvSeparators = []rune{',', ';', '\t', '|'}

// newCSVReader strips a UTF-8 BOM and guesses the separator from the first line.
func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReaderSize(r, 64*1024)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	reader := csv.NewReader(br)
	reader.Comma = detectSeparator(head)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func detectSeparator(line []byte) rune {
	best, bestCount := ',', 0
	for _, sep := range csvSeparators {
		if n := bytes.Count(line, []byte(string(sep))); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// DecodeCSV reads a CSV trade log whose first record is the header. Unreadable
// records are dropped and counted in BadLines.
func DecodeCSV(r io.Reader) (*Table, error) {
	reader := newCSVReader(r)
	table := &Table{Format: FormatCSV}

	header, err := reader.Read()
	if err == io.EOF {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	table.Headers = append([]string(nil), header...)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			table.BadLines++
			continue
		}

		row := make([]any, len(table.Headers))
		for i := range row {
			if i < len(record) && record[i] != "" {
				row[i] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func readCSVHeaders(r io.Reader) ([]string, error) {
	header, err := newCSVReader(r).Read()
	if err == io.EOF {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	return header, nil
}
