package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/benvon/tripflow/internal/models"
)

var (
	// ErrMalformedResponse indicates the model returned something that is not an autofill payload
	ErrMalformedResponse = errors.New("malformed AI response")
	// ErrEmptyResponse indicates the model returned no content
	ErrEmptyResponse = errors.New("empty AI response")
)

var (
	coordsObjectPattern = regexp.MustCompile(`"coords"\s*:\s*\{[^{}]*\}`)
	numberPattern       = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

type autofillEnvelope struct {
	Activities *[]rawCandidate `json:"activities"`
}

type rawCandidate struct {
	Name         string          `json:"name"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	ExpectedCost json.RawMessage `json:"expectedCost"`
	Location     string          `json:"location"`
	Coords       json.RawMessage `json:"coords"`
}

// ParseAutofillResponse decodes the model's autofill payload.
// The JSON object may be wrapped in code fences or prose. Coords and costs are decoded
// leniently and dropped when unusable. A payload without an activities array is malformed.
func ParseAutofillResponse(content string) ([]models.AICandidate, error) {
	raw := stripCodeFence(strings.TrimSpace(content))
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Activities == nil {
		return nil, fmt.Errorf("%w: missing activities", ErrMalformedResponse)
	}

	out := make([]models.AICandidate, 0, len(*env.Activities))
	for _, rc := range *env.Activities {
		out = append(out, models.AICandidate{
			Name:         strings.TrimSpace(rc.Name),
			Start:        strings.TrimSpace(rc.Start),
			End:          strings.TrimSpace(rc.End),
			ExpectedCost: parseCost(rc.ExpectedCost),
			Location:     strings.TrimSpace(rc.Location),
			Coords:       parseCoords(rc.Coords),
		})
	}
	return out, nil
}

// decodeEnvelope tries the raw text, then the outermost {...} substring, then a coords repair
func decodeEnvelope(raw string) (autofillEnvelope, error) {
	var env autofillEnvelope
	err := json.Unmarshal([]byte(raw), &env)
	if err == nil {
		return env, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return env, err
	}
	obj := raw[start : end+1]
	if err = json.Unmarshal([]byte(obj), &env); err == nil {
		return env, nil
	}

	env = autofillEnvelope{}
	repaired := coordsObjectPattern.ReplaceAllStringFunc(obj, repairCoords)
	if err = json.Unmarshal([]byte(repaired), &env); err != nil {
		return autofillEnvelope{}, err
	}
	return env, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl != -1 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// repairCoords rewrites a coords object the model got wrong into {"lat":x,"lng":y} or null
func repairCoords(match string) string {
	obj := match[strings.Index(match, "{"):]
	var valid map[string]any
	if json.Unmarshal([]byte(obj), &valid) == nil {
		return match
	}
	nums := numberPattern.FindAllString(obj, -1)
	if len(nums) < 2 {
		return `"coords": null`
	}
	return fmt.Sprintf(`"coords": {"lat": %s, "lng": %s}`, nums[0], nums[1])
}

func parseCost(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.NewReplacer("$", "", ",", "", "USD", "").Replace(s)
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &n
}

func parseCoords(raw json.RawMessage) *models.Coords {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var lat, lng float64
	var obj map[string]json.RawMessage
	var arr []float64
	switch {
	case json.Unmarshal(raw, &obj) == nil:
		var okLat, okLng bool
		lat, okLat = coordValue(obj, "lat", "latitude")
		lng, okLng = coordValue(obj, "lng", "lon", "long", "longitude")
		if !okLat || !okLng {
			return nil
		}
	case json.Unmarshal(raw, &arr) == nil && len(arr) == 2:
		lat, lng = arr[0], arr[1]
	default:
		return nil
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}
	return &models.Coords{Lat: lat, Lng: lng}
}

func coordValue(obj map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		var n float64
		if json.Unmarshal(v, &n) == nil {
			return n, true
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
