package domain

import "testing"

func TestPackageReschedulable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusOutForDelivery, true},
		{StatusScheduled, true},
		{"Delivered", false},
		{"scheduled", false},
		{"", false},
	}

	for _, tc := range tests {
		p := &Package{TrackingID: "TRACK123", Status: tc.status}
		if got := p.Reschedulable(); got != tc.want {
			t.Errorf("Reschedulable(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestPackageMatchesPostalCode(t *testing.T) {
	p := &Package{TrackingID: "TRACK123", PostalCode: "AB12"}

	if !p.MatchesPostalCode("AB12") {
		t.Fatalf("exact postal code did not match")
	}
	if p.MatchesPostalCode("ab12") {
		t.Fatalf("postal code match must be case-sensitive")
	}
	if p.MatchesPostalCode(" AB12") {
		t.Fatalf("postal code match must not trim input")
	}
}
