package assistant

import (
	"testing"

	"github.com/wolfman30/health-assistant/internal/session"
)

var vaccineCatalog = []session.Entity{
	{ID: "v1", Name: "Covishield"},
	{ID: "v2", Name: "Hepatitis B"},
	{ID: "v3", Name: "Influenza"},
}

func TestResolveFuzzy(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		wantID string
	}{
		{"exact different case", "covishield", true, "v1"},
		{"minor typo", "Covishild", true, "v1"},
		{"whitespace ignored", "hepatitis  b", true, "v2"},
		{"unrelated", "Polio", false, ""},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, list := ResolveFuzzy(tt.input, vaccineCatalog, DefaultMatchThreshold)
			if ok != tt.wantOK {
				t.Fatalf("ResolveFuzzy(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok {
				if got.ID != tt.wantID {
					t.Fatalf("ResolveFuzzy(%q) = %s, want %s", tt.input, got.ID, tt.wantID)
				}
				if list != nil {
					t.Fatalf("expected no candidate list on match")
				}
				return
			}
			if len(list) != len(vaccineCatalog) {
				t.Fatalf("expected full candidate list, got %d", len(list))
			}
		})
	}
}

func TestResolveFuzzyEmptyCatalog(t *testing.T) {
	_, ok, list := ResolveFuzzy("Covishield", nil, 0)
	if ok || len(list) != 0 {
		t.Fatalf("expected no match and empty list, got ok=%v list=%v", ok, list)
	}
}

func TestSimilarityBounds(t *testing.T) {
	if got := Similarity("Influenza", "influenza"); got != 1 {
		t.Fatalf("expected 1 for case-insensitive equal, got %v", got)
	}
	if got := Similarity("abc", "xyz"); got != 0 {
		t.Fatalf("expected 0 for disjoint names, got %v", got)
	}
	if got := Similarity("Covishield", "Covaxin"); got >= DefaultMatchThreshold {
		t.Fatalf("expected distinct vaccines below threshold, got %v", got)
	}
}

func TestResolveExact(t *testing.T) {
	meds := []session.Entity{{ID: "m1", Name: "Metformin"}, {ID: "m2", Name: "Vitamin D3"}}
	if got, ok := ResolveExact("  vitamin d3 ", meds); !ok || got.ID != "m2" {
		t.Fatalf("expected case-insensitive exact match, got %v %v", got, ok)
	}
	if _, ok := ResolveExact("Metformn", meds); ok {
		t.Fatal("exact resolution must not accept typos")
	}
}
