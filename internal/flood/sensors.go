package flood

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	errx "github.com/HeliosCommand/server/internal/core/error"
)

// SensorColumns is the required header of the sensor dataset, in order.
var SensorColumns = []string{
	"timestamp",
	"water_level_m",
	"rainfall_mm_per_hr",
	"river_flow_rate_m3s",
	"soil_moisture_percent",
	"temperature_celsius",
	"humidity_percent",
	"alert_status",
	"place",
	"latitude",
	"longitude",
}

// SensorData is the validated content of the sensor CSV.
type SensorData struct {
	Header []string
	Rows   [][]string
}

// ReadSensorData reads and validates sensor readings. Rows are kept as text for the analyst.
func ReadSensorData(r io.Reader) (*SensorData, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = len(SensorColumns)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errx.New(err, errx.KindNotFound, "sensor dataset is empty")
		}
		return nil, fmt.Errorf("read sensor header: %w", err)
	}
	for i, want := range SensorColumns {
		got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
		if got != want {
			return nil, errx.Malformed(fmt.Sprintf("sensor column %d is %q, want %q", i+1, header[i], want))
		}
	}

	data := &SensorData{Header: SensorColumns}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sensor row %d: %w", line, err)
		}
		data.Rows = append(data.Rows, rec)
	}
	if len(data.Rows) == 0 {
		return nil, errx.New(nil, errx.KindNotFound, "sensor dataset has no readings")
	}
	return data, nil
}

// LoadSensorFile opens path and reads it with ReadSensorData.
func LoadSensorFile(path string) (*SensorData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.New(err, errx.KindNotFound, "sensor dataset not found")
	}
	defer f.Close()
	return ReadSensorData(f)
}

// CSV serialises the rows without the header.
func (d *SensorData) CSV() string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.WriteAll(d.Rows)
	return strings.TrimRight(b.String(), "\n")
}
