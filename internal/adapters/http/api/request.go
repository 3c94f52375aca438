package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/checkpoint/internal/domain/features"
)

var (
	errLatLonRequired = errors.New("lat and lon are required")
	errItemsRequired  = errors.New("items (list) is required")
	errInvalidJSON    = errors.New("invalid JSON body")
)

// reading is one checkpoint observation as posted by clients.
type reading struct {
	Latitude     any              `json:"latitude"`
	Longitude    any              `json:"longitude"`
	Features     features.Mapping `json:"features"`
	Timestamp    flexString       `json:"timestamp"`
	CheckpointID flexString       `json:"checkpoint_id"`
	VehicleID    flexString       `json:"vehicle_id"`
}

// location returns the reading's coordinates. Missing or null coordinates
// yield errLatLonRequired.
func (r reading) location() (lat, lon float64, err error) {
	if r.Latitude == nil || r.Longitude == nil {
		return 0, 0, errLatLonRequired
	}
	if lat, err = features.Float(r.Latitude); err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	if lon, err = features.Float(r.Longitude); err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return lat, lon, nil
}

type batchRequest struct {
	Items []reading `json:"items"`
}

// flexString accepts a JSON string, number or null. Clients send IDs either way.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

// decodeBody reads a JSON object into v. An empty body decodes as {}.
func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	return nil
}

// parseIntParam reads an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
