package domain

import "testing"

func TestStatusOrder(t *testing.T) {
	ordered := AllStatuses()
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("rank(%s)=%d is not below rank(%s)=%d",
				ordered[i-1], ordered[i-1].Rank(), ordered[i], ordered[i].Rank())
		}
	}
}

func TestIsRetrocession(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNegotiation, StatusInterested, true},
		{StatusInterested, StatusNegotiation, false},
		{StatusNew, StatusNew, false},
		{StatusLost, StatusWon, true},
		{StatusFollowUp, StatusNew, true},
	}

	for _, tc := range cases {
		if got := IsRetrocession(tc.from, tc.to); got != tc.want {
			t.Errorf("IsRetrocession(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, ok := ParseStatus("negotiation"); !ok {
		t.Error("negotiation should parse")
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Error("archived must not parse")
	}
	if Status("archived").Rank() != -1 {
		t.Error("unknown status must rank as -1")
	}
}
