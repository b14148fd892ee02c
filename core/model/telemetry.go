package model

// TelemetryRecord is one row of the simulator telemetry dataset.
type TelemetryRecord struct {
	Timestamp float64
	VehicleID int
	TowerID   string
	X         float64
	Y         float64
}

// Position is a planar vehicle coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FallbackPosition is emitted when no telemetry exists for a vehicle.
var FallbackPosition = Position{}

// VehicleData is the result of selecting a vehicle's telemetry. It is either
// DataFound or DataAbsent.
type VehicleData interface {
	vehicleData()
	Vehicle() int
}

// DataFound holds the most recent telemetry records of a vehicle in source
// order. Records is never empty.
type DataFound struct {
	VehicleID int
	Records   []TelemetryRecord
}

// DataAbsent signals that the dataset holds no rows for the vehicle.
type DataAbsent struct {
	VehicleID int
}

func (DataFound) vehicleData()  {}
func (DataAbsent) vehicleData() {}

// Vehicle returns the selected vehicle identifier.
func (d DataFound) Vehicle() int { return d.VehicleID }

// Vehicle returns the selected vehicle identifier.
func (d DataAbsent) Vehicle() int { return d.VehicleID }

// Timestamps returns the feature column of the records.
func (d DataFound) Timestamps() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Timestamp
	}
	return out
}

// Coordinates returns the X and Y target columns of the records.
func (d DataFound) Coordinates() (xs, ys []float64) {
	xs = make([]float64, len(d.Records))
	ys = make([]float64, len(d.Records))
	for i, r := range d.Records {
		xs[i] = r.X
		ys[i] = r.Y
	}
	return xs, ys
}
