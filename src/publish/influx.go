package publish

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ryansname/switchsum/src/config"
	"github.com/ryansname/switchsum/src/report"
)

// tagColumns identify a row rather than measure it
var tagColumns = map[string]bool{
	"period":         true,
	"technology":     true,
	"source":         true,
	"timepoint":      true,
	"carbon_cost":    true,
	"test_set_id":    true,
	"load_area":      true,
	"percentile_num": true,
	"month_of_year":  true,
	"hour_of_day":    true,
}

// pointWriter is the part of api.WriteAPIBlocking the sink uses
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Influx writes one point per report row, measurement named after the report
type Influx struct {
	client influxdb2.Client
	writer pointWriter
}

// NewInflux connects to InfluxDB and checks its health
func NewInflux(ctx context.Context, cfg config.Influx) (*Influx, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	return &Influx{client: client, writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket)}, nil
}

// Name implements Publisher
func (s *Influx) Name() string { return "influx" }

// influxPoints converts b to points. Identifying and non-numeric cells
// become tags, the rest fields.
func influxPoints(b Batch) []*write.Point {
	points := make([]*write.Point, 0, len(b.Rows))
	for _, row := range b.Rows {
		tags := map[string]string{
			"run_id":      b.RunID.String(),
			"scenario_id": strconv.Itoa(b.ScenarioID),
		}
		fields := make(map[string]interface{})
		for j, cell := range row {
			if j >= len(b.Header) {
				break
			}
			col := report.Unquote(b.Header[j])
			v := Value(cell)
			if f, ok := v.(float64); ok && !tagColumns[col] {
				fields[col] = f
				continue
			}
			if s, ok := v.(string); ok {
				tags[col] = s
			} else {
				tags[col] = cell
			}
		}
		if len(fields) == 0 {
			continue
		}
		points = append(points, write.NewPoint(b.Report, tags, fields, b.At))
	}
	return points
}

// Publish implements Publisher
func (s *Influx) Publish(ctx context.Context, batches []Batch) error {
	for _, b := range batches {
		points := influxPoints(b)
		if len(points) == 0 {
			continue
		}
		if err := s.writer.WritePoint(ctx, points...); err != nil {
			return fmt.Errorf("influx write %s: %w", b.Report, err)
		}
	}
	return nil
}

// Close implements Publisher
func (s *Influx) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
