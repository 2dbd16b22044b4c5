package ai

import (
	"errors"
	"testing"
)

func TestParseAutofillResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantErr   error
		wantCount int
		validate  func(*testing.T, []candidateView)
	}{
		{
			name:      "plain json",
			content:   `{"activities":[{"name":"Tea Ceremony","start":"13:00","end":"14:00","expectedCost":30,"location":"Gion","coords":{"lat":35.0037,"lng":135.7788}}]}`,
			wantCount: 1,
			validate: func(t *testing.T, got []candidateView) {
				if got[0].cost == nil || *got[0].cost != 30 {
					t.Errorf("Expected cost 30, got %v", got[0].cost)
				}
				if !got[0].hasCoords {
					t.Error("Expected coords")
				}
			},
		},
		{
			name:      "code fence",
			content:   "```json\n{\"activities\":[{\"name\":\"A\",\"start\":\"10:00\",\"end\":\"11:00\"}]}\n```",
			wantCount: 1,
		},
		{
			name:      "surrounding prose",
			content:   "Here is your plan:\n{\"activities\":[{\"name\":\"A\",\"start\":\"10:00\",\"end\":\"11:00\"}]}\nEnjoy!",
			wantCount: 1,
		},
		{
			name:      "coords missing a key are repaired then range checked",
			content:   `{"activities":[{"name":"Lunch at Disneyland","start":"11:00","end":"12:00","expectedCost":40,"location":"Disneyland Anaheim","coords":{"lat": 43.2943, -203.4829}}]}`,
			wantCount: 1,
			validate: func(t *testing.T, got []candidateView) {
				if got[0].hasCoords {
					t.Error("Expected out-of-range coords to be dropped")
				}
				if got[0].name != "Lunch at Disneyland" {
					t.Errorf("Unexpected name %q", got[0].name)
				}
			},
		},
		{
			name:      "coords missing keys within range",
			content:   `{"activities":[{"name":"A","start":"10:00","end":"11:00","coords":{"lat": 48.85, 2.35}}]}`,
			wantCount: 1,
			validate: func(t *testing.T, got []candidateView) {
				if !got[0].hasCoords || got[0].lat != 48.85 || got[0].lng != 2.35 {
					t.Errorf("Expected repaired coords 48.85,2.35, got %+v", got[0])
				}
			},
		},
		{
			name:      "string cost and array coords",
			content:   `{"activities":[{"name":"A","start":"10:00","end":"11:00","expectedCost":"$1,200.50","coords":[40.7,-74.0]}]}`,
			wantCount: 1,
			validate: func(t *testing.T, got []candidateView) {
				if got[0].cost == nil || *got[0].cost != 1200.5 {
					t.Errorf("Expected cost 1200.5, got %v", got[0].cost)
				}
				if !got[0].hasCoords || got[0].lat != 40.7 {
					t.Errorf("Expected array coords, got %+v", got[0])
				}
			},
		},
		{
			name:      "unparsable cost is dropped",
			content:   `{"activities":[{"name":"A","start":"10:00","end":"11:00","expectedCost":"free-ish"}]}`,
			wantCount: 1,
			validate: func(t *testing.T, got []candidateView) {
				if got[0].cost != nil {
					t.Errorf("Expected nil cost, got %v", *got[0].cost)
				}
			},
		},
		{
			name:      "empty activities",
			content:   `{"activities":[]}`,
			wantCount: 0,
		},
		{
			name:    "missing activities key",
			content: `{"suggestions":[]}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "null activities",
			content: `{"activities":null}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "no json",
			content: "I cannot do that",
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "empty",
			content: "  ",
			wantErr: ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAutofillResponse(tt.content)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Fatalf("Expected %d candidates, got %d", tt.wantCount, len(got))
			}
			if tt.validate != nil {
				views := make([]candidateView, 0, len(got))
				for _, c := range got {
					v := candidateView{name: c.Name, cost: c.ExpectedCost}
					if c.Coords != nil {
						v.hasCoords = true
						v.lat, v.lng = c.Coords.Lat, c.Coords.Lng
					}
					views = append(views, v)
				}
				tt.validate(t, views)
			}
		})
	}
}

type candidateView struct {
	name      string
	cost      *float64
	hasCoords bool
	lat, lng  float64
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "```json\n{}\n```", want: "{}"},
		{in: "```\n{}```", want: "{}"},
		{in: "{}", want: "{}"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
