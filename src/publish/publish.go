// Package publish pushes finished reports to optional external sinks. The
// report files stay the source of truth; sinks receive a copy tagged with a
// run id.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/config"
	"github.com/ryansname/switchsum/src/report"
)

// Batch is one report ready to publish
type Batch struct {
	RunID      uuid.UUID
	ScenarioID int
	At         time.Time
	Report     string
	Header     []string
	Rows       [][]string
}

// Batches wraps tables for publishing under a single run id. Reports are
// named by file name without extension.
func Batches(runID uuid.UUID, scenarioID int, at time.Time, tables []report.Table) []Batch {
	out := make([]Batch, 0, len(tables))
	for _, t := range tables {
		out = append(out, Batch{
			RunID:      runID,
			ScenarioID: scenarioID,
			At:         at,
			Report:     strings.TrimSuffix(t.Name, filepath.Ext(t.Name)),
			Header:     t.Header,
			Rows:       t.Rows,
		})
	}
	return out
}

// Value converts a report cell: numbers become float64, quoted names lose their quotes
func Value(cell string) any {
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return report.Unquote(cell)
}

// Record is one row keyed by column
type Record map[string]any

// Records returns the rows of b keyed by column
func (b Batch) Records() []Record {
	out := make([]Record, len(b.Rows))
	for i, row := range b.Rows {
		r := make(Record, len(row))
		for j, cell := range row {
			if j < len(b.Header) {
				r[report.Unquote(b.Header[j])] = Value(cell)
			}
		}
		out[i] = r
	}
	return out
}

// Message is the JSON document sent for a whole report
type Message struct {
	RunID      string   `json:"run_id"`
	ScenarioID int      `json:"scenario_id"`
	Report     string   `json:"report"`
	Rows       []Record `json:"rows"`
}

// Message returns the JSON document for b
func (b Batch) Message() Message {
	return Message{
		RunID:      b.RunID.String(),
		ScenarioID: b.ScenarioID,
		Report:     b.Report,
		Rows:       b.Records(),
	}
}

// Publisher sends report batches somewhere
type Publisher interface {
	Name() string
	Publish(ctx context.Context, batches []Batch) error
	Close() error
}

// Multi publishes to every sink, carrying on past failures
type Multi struct {
	sinks  []Publisher
	logger logrus.FieldLogger
}

// NewMulti wraps sinks
func NewMulti(logger logrus.FieldLogger, sinks ...Publisher) *Multi {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Multi{sinks: sinks, logger: logger}
}

// Len is the number of sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Publish sends batches to every sink and joins their errors
func (m *Multi) Publish(ctx context.Context, batches []Batch) error {
	var errs []error
	for _, s := range m.sinks {
		log := m.logger.WithField("sink", s.Name())
		if err := s.Publish(ctx, batches); err != nil {
			log.WithError(err).Error("Publish failed")
			errs = append(errs, fmt.Errorf("publish %s: %w", s.Name(), err))
			continue
		}
		log.WithField("reports", len(batches)).Info("Published reports")
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Open connects every sink enabled in cfg. A sink is enabled by its address.
func Open(ctx context.Context, cfg config.Publish, logger logrus.FieldLogger) (*Multi, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := NewMulti(logger)
	fail := func(err error) (*Multi, error) {
		_ = m.Close()
		return nil, err
	}

	if cfg.MQTT.Broker != "" {
		s, err := NewMQTT(cfg.MQTT, logger)
		if err != nil {
			return fail(err)
		}
		m.sinks = append(m.sinks, s)
	}
	if cfg.Influx.URL != "" {
		s, err := NewInflux(ctx, cfg.Influx)
		if err != nil {
			return fail(err)
		}
		m.sinks = append(m.sinks, s)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		s, err := NewKafka(cfg.Kafka)
		if err != nil {
			return fail(err)
		}
		m.sinks = append(m.sinks, s)
	}
	if cfg.Postgres.URL != "" {
		s, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return fail(err)
		}
		m.sinks = append(m.sinks, s)
	}
	return m, nil
}
