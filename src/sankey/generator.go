package sankey

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// indentWriter helps produce properly indented YAML output
type indentWriter struct {
	builder *strings.Builder
	depth   int
}

func newIndentWriter() *indentWriter {
	return &indentWriter{builder: &strings.Builder{}}
}

func (w *indentWriter) indent() {
	w.depth++
}

func (w *indentWriter) unindent() {
	w.depth--
}

func (w *indentWriter) writeLine(line string) {
	for i := 0; i < w.depth*2; i++ {
		w.builder.WriteByte(' ')
	}
	w.builder.WriteString(line)
	w.builder.WriteByte('\n')
}

func (w *indentWriter) String() string {
	return w.builder.String()
}

// yamlString quotes s for a YAML scalar
func yamlString(s string) string {
	return strconv.Quote(s)
}

func energy(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// GenerateYAML renders the diagrams as sectioned sankey chart configuration:
// each node lists its state and the nodes it feeds.
func GenerateYAML(diagrams []Diagram) string {
	w := newIndentWriter()
	w.writeLine("unit: MWh/yr")
	w.writeLine("periods:")
	w.indent()

	for _, d := range diagrams {
		w.writeLine(fmt.Sprintf("- period: %d", d.Period))
		w.indent()
		w.writeLine("sections:")
		w.indent()

		nodes := d.Nodes()
		for section := SectionSupply; section <= SectionDemand; section++ {
			w.writeLine(fmt.Sprintf("- name: %s", section))
			w.indent()
			w.writeLine("entities:")
			for _, n := range nodes {
				if n.Section != section {
					continue
				}
				w.writeLine(fmt.Sprintf("- name: %s", yamlString(n.Name)))
				w.indent()
				state := d.Outflow(n)
				if section == SectionDemand {
					state = d.Inflow(n)
				}
				w.writeLine("state: " + energy(state))
				writeChildren(w, d, n)
				w.unindent()
			}
			w.unindent()
		}
		w.unindent()
		w.unindent()
	}
	w.unindent()
	return w.String()
}

// writeChildren writes the targets fed by n with the energy sent to each
func writeChildren(w *indentWriter, d Diagram, n Node) {
	var children []Flow
	for _, f := range d.Flows {
		if f.Source == n {
			children = append(children, f)
		}
	}
	if len(children) == 0 {
		return
	}
	w.writeLine("children:")
	w.indent()
	for _, f := range children {
		w.writeLine(fmt.Sprintf("- name: %s", yamlString(f.Target.Name)))
		w.writeLine("  energy: " + energy(f.Energy))
	}
	w.unindent()
}

// WriteChart writes the chart configuration into dir
func WriteChart(dir string, diagrams []Diagram, logger logrus.FieldLogger) error {
	path := filepath.Join(dir, ChartFile)
	if err := os.WriteFile(path, []byte(GenerateYAML(diagrams)), 0o644); err != nil {
		return fmt.Errorf("sankey: %w", err)
	}
	logger.WithFields(logrus.Fields{"file": path, "periods": len(diagrams)}).Info("Wrote energy flow chart")
	return nil
}
