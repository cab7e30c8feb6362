// Package tabfile reads the tab-delimited result and input tables written by
// the capacity-expansion model.
package tabfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrMalformed is returned for ragged rows, unknown columns and fields that
// fail numeric parsing.
var ErrMalformed = errors.New("tabfile: malformed record")

// Options controls how a file is read
type Options struct {
	// AMPLHeader skips the extra line AMPL writes above the column header in .tab files
	AMPLHeader bool
	Logger     logrus.FieldLogger
}

// Header maps column names to positions
type Header struct {
	Names []string
	index map[string]int
}

func newHeader(names []string) *Header {
	h := &Header{Names: names, index: make(map[string]int, len(names))}
	for i, name := range names {
		h.index[strings.TrimSpace(name)] = i
	}
	return h
}

// Has reports whether the header names the column
func (h *Header) Has(col string) bool {
	_, ok := h.index[col]
	return ok
}

// Row is a single record with typed accessors by name or by position
type Row struct {
	Path   string
	Line   int
	Fields []string
	header *Header
}

// Table is a fully materialized file
type Table struct {
	Path    string
	Header  *Header
	Rows    []Row
	Missing bool
}

// Scan streams every data row of path to fn. A missing file is logged and
// reported through found=false without an error.
func Scan(path string, opts Options, fn func(Row) error) (found bool, err error) {
	return scan(path, opts, nil, fn)
}

func scan(path string, opts Options, onHeader func(*Header), fn func(Row) error) (bool, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WithField("file", path).Warn("input not found, skipping")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("tabfile: open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	line := 0
	if opts.AMPLHeader {
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return true, fmt.Errorf("tabfile: %s: %w", path, err)
		}
		line++
	}

	r := csv.NewReader(br)
	r.Comma = '\t'
	r.LazyQuotes = true

	names, err := r.Read()
	if errors.Is(err, io.EOF) {
		// Header-only or empty file
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("%w: %s header: %v", ErrMalformed, path, err)
	}
	line++
	header := newHeader(names)
	if onHeader != nil {
		onHeader(header)
	}

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		line++
		if err != nil {
			return true, fmt.Errorf("%w: %s line %d: %v", ErrMalformed, path, line, err)
		}
		if err := fn(Row{Path: path, Line: line, Fields: fields, header: header}); err != nil {
			return true, err
		}
	}
}

// Read loads path into memory. A missing file yields an empty table with Missing set.
func Read(path string, opts Options) (*Table, error) {
	t := &Table{Path: path}
	found, err := scan(path, opts, func(h *Header) { t.Header = h }, func(r Row) error {
		t.Rows = append(t.Rows, r)
		return nil
	})
	t.Missing = !found
	return t, err
}

func (r Row) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s line %d: %s", ErrMalformed, r.Path, r.Line, fmt.Sprintf(format, args...))
}

// String returns the named field
func (r Row) String(col string) (string, error) {
	i, ok := r.header.index[col]
	if !ok {
		return "", r.errorf("no column %q", col)
	}
	return r.FieldAt(i)
}

// FieldAt returns the field at position i
func (r Row) FieldAt(i int) (string, error) {
	if i < 0 || i >= len(r.Fields) {
		return "", r.errorf("no field at position %d (row has %d)", i, len(r.Fields))
	}
	return strings.TrimSpace(r.Fields[i]), nil
}

// Float parses the named field as a float
func (r Row) Float(col string) (float64, error) {
	s, err := r.String(col)
	if err != nil {
		return 0, err
	}
	return r.parseFloat(col, s)
}

// FloatAt parses the field at position i as a float
func (r Row) FloatAt(i int) (float64, error) {
	s, err := r.FieldAt(i)
	if err != nil {
		return 0, err
	}
	return r.parseFloat(strconv.Itoa(i), s)
}

// Int parses the named field as an int
func (r Row) Int(col string) (int, error) {
	s, err := r.String(col)
	if err != nil {
		return 0, err
	}
	return r.parseInt(col, s)
}

// IntAt parses the field at position i as an int
func (r Row) IntAt(i int) (int, error) {
	s, err := r.FieldAt(i)
	if err != nil {
		return 0, err
	}
	return r.parseInt(strconv.Itoa(i), s)
}

// Int64 parses the named field as an int64 (timepoint IDs)
func (r Row) Int64(col string) (int64, error) {
	s, err := r.String(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, r.errorf("column %s: %v", col, err)
	}
	return v, nil
}

// Floats parses several named fields at once, stopping at the first failure
func (r Row) Floats(cols ...string) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, col := range cols {
		v, err := r.Float(col)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r Row) parseFloat(col, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, r.errorf("column %s: %v", col, err)
	}
	return v, nil
}

func (r Row) parseInt(col, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some writers emit integral values as "2020.0"
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, r.errorf("column %s: %v", col, err)
		}
		return int(f), nil
	}
	return v, nil
}
