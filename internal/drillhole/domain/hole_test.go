package drillhole

import "testing"

func TestBlastHoleValidate(t *testing.T) {
	hole := BlastHole{HoleID: "H001", EntityName: "bench-1", HoleDiameterMm: 200, HoleLength: 12}
	if err := hole.Validate(); err != nil {
		t.Fatalf("valid hole rejected: %v", err)
	}

	// Upholes carry a negative length and are valid.
	hole.HoleLength = -12
	if err := hole.Validate(); err != nil {
		t.Fatalf("uphole rejected: %v", err)
	}

	cases := []struct {
		name string
		hole BlastHole
	}{
		{"empty id", BlastHole{EntityName: "bench-1", HoleDiameterMm: 200}},
		{"empty entity", BlastHole{HoleID: "H001", HoleDiameterMm: 200}},
		{"zero diameter", BlastHole{HoleID: "H001", EntityName: "bench-1"}},
	}
	for _, tc := range cases {
		if err := tc.hole.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
