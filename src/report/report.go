// Package report writes the tab-delimited summary files. Every row begins
// with the scenario identifier and column order is fixed per report.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ScenarioColumn is the first column of every report
const ScenarioColumn = "scenario_id"

// ErrScenarioID is returned when the scenario identifier file does not hold an integer
var ErrScenarioID = errors.New("report: malformed scenario id")

// Table is a report ready to be written: a file name, the columns after
// scenario_id, and rows already in report order.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Append adds a row
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Column returns the position of a column in Header, or -1
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Float formats v in the shortest decimal form that round-trips
func Float(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Int formats an integer cell
func Int[T ~int | ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

// Quote wraps a technology group name in double quotes
func Quote(s string) string {
	return `"` + s + `"`
}

// Unquote strips the quotes Quote adds
func Unquote(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
}

// ReadScenarioID reads the one-line integer scenario identifier
func ReadScenarioID(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("report: read scenario id: %w", err)
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrScenarioID, path, err)
	}
	return id, nil
}

// Write writes every table into dir, replacing any existing file of the same name
func Write(dir string, scenarioID int, tables []Table, logger logrus.FieldLogger) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, t := range tables {
		path := filepath.Join(dir, t.Name)
		if err := writeTable(path, scenarioID, t); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"file": path, "rows": len(t.Rows)}).Info("Wrote report")
	}
	return nil
}

func writeTable(path string, scenarioID int, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	w := bufio.NewWriter(f)
	id := strconv.Itoa(scenarioID)

	writeLine(w, ScenarioColumn, t.Header)
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			f.Close()
			return fmt.Errorf("report: %s row %d has %d cells, header has %d", t.Name, i, len(row), len(t.Header))
		}
		writeLine(w, id, row)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", path, err)
	}
	return nil
}

func writeLine(w *bufio.Writer, first string, cells []string) {
	w.WriteString(first)
	for _, c := range cells {
		w.WriteByte('\t')
		w.WriteString(c)
	}
	w.WriteByte('\n')
}
