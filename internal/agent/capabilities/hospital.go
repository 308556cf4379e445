package capabilities

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	"github.com/HeliosCommand/server/internal/geo"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

const hospitalFailurePrefix = "Sorry, I couldn't find hospitals near that location: "

// ErrNoHospitalData is returned when the reference dataset is missing or empty.
var ErrNoHospitalData = errors.New("Hospital dataset not found")

type Hospital struct {
	Name        string
	Coordinates geo.Coordinates
}

// LoadHospitals reads Name, Latitude, Longitude rows. Column order is taken from the header.
func LoadHospitals(r io.Reader) ([]Hospital, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read hospital header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	nameCol, okN := idx["name"]
	latCol, okLat := idx["latitude"]
	lonCol, okLon := idx["longitude"]
	if !okN || !okLat || !okLon {
		return nil, fmt.Errorf("hospital dataset needs Name, Latitude and Longitude columns, got %v", header)
	}

	var out []Hospital
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read hospital row %d: %w", line, err)
		}
		if len(rec) <= max(nameCol, latCol, lonCol) {
			logx.Warn().Int("line", line).Msg("Skipping short hospital row")
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64)
		c := geo.Coordinates{Lat: lat, Lon: lon}
		if errLat != nil || errLon != nil || !c.Valid() {
			logx.Warn().Int("line", line).Msg("Skipping hospital row with invalid coordinates")
			continue
		}
		out = append(out, Hospital{Name: strings.TrimSpace(rec[nameCol]), Coordinates: c})
	}
	return out, nil
}

// LoadHospitalsFile opens and parses a hospital CSV. A missing file is ErrNoHospitalData.
func LoadHospitalsFile(path string) ([]Hospital, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoHospitalData
		}
		return nil, fmt.Errorf("open hospital dataset: %w", err)
	}
	defer f.Close()
	return LoadHospitals(f)
}

// HospitalFinder picks the nearest hospital from a fixed dataset.
type HospitalFinder struct {
	hospitals []Hospital
	geocoder  geo.Geocoder
}

func NewHospitalFinder(hospitals []Hospital, geocoder geo.Geocoder) *HospitalFinder {
	return &HospitalFinder{hospitals: hospitals, geocoder: geocoder}
}

func (h *HospitalFinder) Capability() model.Capability {
	return model.CapabilityHospital
}

// Nearest does a linear scan for the minimum haversine distance.
func (h *HospitalFinder) Nearest(origin geo.Coordinates) (Hospital, float64, bool) {
	var (
		best  Hospital
		bestD float64
		found bool
	)
	for _, hosp := range h.hospitals {
		d := geo.Haversine(origin, hosp.Coordinates)
		if !found || d < bestD {
			best, bestD, found = hosp, d, true
		}
	}
	return best, bestD, found
}

func (h *HospitalFinder) Process(ctx context.Context, req Request) model.HandlerResult {
	if len(h.hospitals) == 0 {
		return model.Failed(h.Capability(), hospitalFailurePrefix+ErrNoHospitalData.Error(), ErrNoHospitalData)
	}

	origin, err := locate(ctx, h.geocoder, req)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("Hospital lookup could not locate patient")
		return model.Failed(h.Capability(), hospitalFailurePrefix+locateFailure(err), err)
	}

	best, d, _ := h.Nearest(origin)
	msg := fmt.Sprintf(
		"I found a hospital near you!\n\n**%s**\n- Distance: %.2f km\n- ETA: %d min\n- View: %s\n\nWould you like to proceed with this hospital?",
		best.Name, d, geo.ETAMinutes(d), geo.EarthLink(best.Coordinates),
	)
	return model.Succeeded(h.Capability(), msg)
}

// locateFailure keeps config messages and collapses geocoder failures into one phrase.
func locateFailure(err error) string {
	if errx.KindOf(err) == errx.KindConfig {
		return err.Error()
	}
	return "Could not geocode address"
}
