package distance

import "testing"

func TestEstimateBands(t *testing.T) {
	cases := []struct {
		origin, destination string
		miles               float64
	}{
		{"10001", "10099", 25},
		{"10001", "10501", 100},
		{"10001", "11501", 500},
		{"10001", "14001", 1000},
		{"10001", "94105", 2000},
		{"10001", "AB123", 2000},
		{"1", "10001", 2000},
	}
	for _, tc := range cases {
		got := Estimate(tc.origin, tc.destination)
		if got.Miles != tc.miles {
			t.Fatalf("%s→%s: expected %.0f miles, got %.1f", tc.origin, tc.destination, tc.miles, got.Miles)
		}
		if got.Source != SourceEstimate {
			t.Fatalf("expected estimate source, got %s", got.Source)
		}
	}
}

func TestEstimateDurationIsProportional(t *testing.T) {
	got := Estimate("10001", "11501")
	if got.DurationMinutes != 600 {
		t.Fatalf("expected 600 minutes for 500 miles, got %d", got.DurationMinutes)
	}
}

func TestEstimateDependsOnlyOnPrefixes(t *testing.T) {
	a := Estimate("10001", "11599")
	b := Estimate("10099-1234", "11500")
	if a.Miles != b.Miles || a.DurationMinutes != b.DurationMinutes {
		t.Fatalf("same prefixes must give the same band: %+v vs %+v", a, b)
	}
	reverse := Estimate("11599", "10001")
	if reverse.Miles != a.Miles {
		t.Fatalf("estimate must be symmetric: %v vs %v", reverse.Miles, a.Miles)
	}
}
