package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/simforecast/core/model"
)

// Column positions of the simulator telemetry export.
const (
	colTimestamp = 0
	colTower     = 2
	colX         = 5
	colY         = 6

	vehicleHeader = "vehicleId"
)

var (
	// ErrNoHeader is returned for an empty dataset file.
	ErrNoHeader = errors.New("dataset: missing header row")
	// ErrNoVehicleColumn is returned when the header has no vehicleId column.
	ErrNoVehicleColumn = errors.New("dataset: header has no " + vehicleHeader + " column")
)

// CSVSource reads vehicle telemetry from a comma separated file.
type CSVSource struct {
	Path string
}

// NewCSVSource returns a source reading path on every call.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Vehicle loads the last limit rows of vehicleID. limit <= 0 keeps every row.
func (s *CSVSource) Vehicle(ctx context.Context, vehicleID, limit int) (model.VehicleData, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	data, err := Select(ctx, f, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return data, nil
}

// Select streams the CSV in r and keeps the most recent limit records of
// vehicleID in source order.
func Select(ctx context.Context, r io.Reader, vehicleID, limit int) (model.VehicleData, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}
	if len(header) <= colY {
		return nil, fmt.Errorf("dataset: header has %d columns, need %d", len(header), colY+1)
	}
	vehicleCol := -1
	for i, h := range header {
		if strings.TrimSpace(h) == vehicleHeader {
			vehicleCol = i
			break
		}
	}
	if vehicleCol < 0 {
		return nil, ErrNoVehicleColumn
	}

	ring := newRing(limit)
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) <= colY || len(row) <= vehicleCol {
			return nil, fmt.Errorf("dataset: line %d: %d columns", line, len(row))
		}
		id, err := strconv.ParseFloat(strings.TrimSpace(row[vehicleCol]), 64)
		if err != nil || id != float64(vehicleID) {
			continue
		}
		rec, err := parseRecord(row, vehicleID)
		if err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		ring.push(rec)
	}

	records := ring.slice()
	if len(records) == 0 {
		return model.DataAbsent{VehicleID: vehicleID}, nil
	}
	return model.DataFound{VehicleID: vehicleID, Records: records}, nil
}

func parseRecord(row []string, vehicleID int) (model.TelemetryRecord, error) {
	rec := model.TelemetryRecord{VehicleID: vehicleID, TowerID: strings.TrimSpace(row[colTower])}
	required := []struct {
		col  int
		name string
		dst  *float64
	}{
		{colTimestamp, "timestamp", &rec.Timestamp},
		{colX, "x", &rec.X},
		{colY, "y", &rec.Y},
	}
	for _, f := range required {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[f.col]), 64)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", f.name, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rec, fmt.Errorf("%s: %q is not a finite number", f.name, row[f.col])
		}
		*f.dst = v
	}
	return rec, nil
}

// ring keeps the last n pushed records; n <= 0 keeps everything.
type ring struct {
	n     int
	buf   []model.TelemetryRecord
	start int
}

func newRing(n int) *ring { return &ring{n: n} }

func (r *ring) push(rec model.TelemetryRecord) {
	if r.n <= 0 || len(r.buf) < r.n {
		r.buf = append(r.buf, rec)
		return
	}
	r.buf[r.start] = rec
	r.start = (r.start + 1) % r.n
}

func (r *ring) slice() []model.TelemetryRecord {
	out := make([]model.TelemetryRecord, 0, len(r.buf))
	out = append(out, r.buf[r.start:]...)
	return append(out, r.buf[:r.start]...)
}
