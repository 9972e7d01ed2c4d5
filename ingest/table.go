package ingest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Table is a decoded trade log. Each row is aligned with Headers; blank cells
// are nil, text cells are strings and numeric spreadsheet cells are float64.
type Table struct {
	Format  Format
	Headers []string
	Rows    [][]any
	// BadLines counts records the decoder could not read and dropped.
	BadLines int
}

// FormatOf picks the decoder from the file extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
	}
}

// Decode reads a whole trade log.
func Decode(name string, r io.Reader) (*Table, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return DecodeCSV(r)
	default:
		return DecodeXLSX(r)
	}
}

// ReadHeaders reads only the header row of a trade log.
func ReadHeaders(name string, r io.Reader) ([]string, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return readCSVHeaders(r)
	default:
		return readXLSXHeaders(r)
	}
}
