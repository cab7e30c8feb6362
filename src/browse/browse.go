// Package browse is an interactive viewer for written report files
package browse

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/report"
	"github.com/ryansname/switchsum/src/tabfile"
)

const defaultTop = 10

// Browser finds report files in a set of directories and prints them
type Browser struct {
	dirs    []string
	reports map[string]string // name -> path
	out     io.Writer
	logger  logrus.FieldLogger
	rl      *readline.Instance
}

// New creates a browser over dirs
func New(dirs []string, out io.Writer, logger logrus.FieldLogger) *Browser {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Browser{
		dirs:    dirs,
		reports: make(map[string]string),
		out:     out,
		logger:  logger,
	}
}

// Refresh rescans the directories. A report is any .txt file whose first
// column is scenario_id; when two directories hold the same name the first wins.
func (b *Browser) Refresh() error {
	b.reports = make(map[string]string)
	for _, dir := range b.dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		for _, path := range matches {
			name := strings.TrimSuffix(filepath.Base(path), ".txt")
			if _, seen := b.reports[name]; seen || !isReport(path) {
				continue
			}
			b.reports[name] = path
		}
	}
	return nil
}

// isReport checks the first header cell without reading the whole file
func isReport(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, len(report.ScenarioColumn)+1)
	n, _ := io.ReadFull(f, buf)
	return n == len(buf) && string(buf[:n-1]) == report.ScenarioColumn && buf[n-1] == '\t'
}

// Names lists the known reports
func (b *Browser) Names() []string {
	names := make([]string, 0, len(b.reports))
	for name := range b.reports {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Filter matches rows whose Column equals Value
type Filter struct {
	Column string
	Value  string
}

func parseFilters(args []string) ([]Filter, error) {
	filters := make([]Filter, 0, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("filter %q is not column=value", arg)
		}
		filters = append(filters, Filter{Column: col, Value: val})
	}
	return filters, nil
}

// view is a loaded report
type view struct {
	header []string
	rows   [][]string
}

func (b *Browser) load(name string) (*view, error) {
	path, ok := b.reports[strings.TrimSuffix(name, ".txt")]
	if !ok {
		return nil, fmt.Errorf("no report named %s (try 'reports')", name)
	}
	t, err := tabfile.Read(path, tabfile.Options{Logger: b.logger})
	if err != nil {
		return nil, err
	}
	v := &view{}
	if t.Header != nil {
		v.header = t.Header.Names
	}
	for _, r := range t.Rows {
		v.rows = append(v.rows, r.Fields)
	}
	return v, nil
}

func (v *view) column(name string) (int, error) {
	i := slices.Index(v.header, name)
	if i < 0 {
		return 0, fmt.Errorf("no column %s", name)
	}
	return i, nil
}

func (v *view) filter(filters []Filter) ([][]string, error) {
	cols := make([]int, len(filters))
	for i, f := range filters {
		c, err := v.column(f.Column)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	var out [][]string
	for _, row := range v.rows {
		keep := true
		for i, f := range filters {
			if row[cols[i]] != f.Value {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

// top orders rows descending by a numeric column; cells that do not parse sort last
func (v *view) top(col, n int) [][]string {
	rows := slices.Clone(v.rows)
	value := func(row []string) (float64, bool) {
		f, err := strconv.ParseFloat(row[col], 64)
		return f, err == nil
	}
	slices.SortStableFunc(rows, func(a, b []string) int {
		x, okA := value(a)
		y, okB := value(b)
		switch {
		case okA && okB:
			return cmp.Compare(y, x)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return rows[:min(n, len(rows))]
}

// print outputs a line, keeping the readline prompt intact
func (b *Browser) print(format string, args ...any) {
	if b.rl != nil {
		b.rl.Clean()
		defer b.rl.Refresh()
	}
	fmt.Fprintf(b.out, format+"\n", args...)
}

// printTable prints rows in aligned columns
func (b *Browser) printTable(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%*s", widths[i], cell)
		}
		return strings.Join(parts, " | ")
	}
	b.print("%s", line(header))
	for _, row := range rows {
		b.print("%s", line(row))
	}
	b.print("(%d rows)", len(rows))
}

// Handle runs one command
func (b *Browser) Handle(cmd string) error {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "reports":
		if err := b.Refresh(); err != nil {
			return err
		}
		names := b.Names()
		b.print("Reports (%d):", len(names))
		for _, name := range names {
			b.print("  %s", name)
		}

	case "show":
		if len(parts) < 2 {
			return errors.New("usage: show <report> [column=value...]")
		}
		v, err := b.load(parts[1])
		if err != nil {
			return err
		}
		filters, err := parseFilters(parts[2:])
		if err != nil {
			return err
		}
		rows, err := v.filter(filters)
		if err != nil {
			return err
		}
		b.printTable(v.header, rows)

	case "top":
		if len(parts) < 3 {
			return errors.New("usage: top <report> <column> [n]")
		}
		v, err := b.load(parts[1])
		if err != nil {
			return err
		}
		col, err := v.column(parts[2])
		if err != nil {
			return err
		}
		n := defaultTop
		if len(parts) > 3 {
			if n, err = strconv.Atoi(parts[3]); err != nil || n < 1 {
				return fmt.Errorf("n must be a positive integer, got %s", parts[3])
			}
		}
		b.printTable(v.header, v.top(col, n))

	case "help":
		b.print("Commands:")
		b.print("  reports                          - List report files")
		b.print("  show <report>                    - Print a report")
		b.print("  show <report> column=value ...   - Print matching rows")
		b.print("  top <report> <column> [n]        - Print the n largest rows by column (default 10)")
		b.print("  help                             - Show this help")

	default:
		return fmt.Errorf("unknown command: %s (try 'help')", parts[0])
	}
	return nil
}

// historyFilePath returns the path for the browse history file
func historyFilePath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "switchsum")
	_ = os.MkdirAll(dir, 0o750)
	return filepath.Join(dir, "browse_history")
}

// Run reads commands until EOF, Ctrl+C or ctx is done
func (b *Browser) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "switchsum> ",
		HistoryFile: historyFilePath(),
	})
	if err != nil {
		return fmt.Errorf("browse: readline init failed: %w", err)
	}
	b.rl = rl
	defer func() {
		_ = rl.Close()
		b.rl = nil
	}()
	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	if err := b.Refresh(); err != nil {
		return err
	}
	b.print("%d reports found (type 'help' for commands)", len(b.reports))

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := b.Handle(strings.TrimSpace(line)); err != nil {
			b.print("Error: %v", err)
		}
	}
}
