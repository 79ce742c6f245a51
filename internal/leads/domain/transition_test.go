package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func leadAt(status Status) LeadState {
	return LeadState{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Status:   status,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestPlanAutomaticConfidenceGate(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		wantApply  bool
	}{
		{"well below threshold", 0.10, false},
		{"just below threshold", 0.69, false},
		{"at threshold", 0.70, true},
		{"above threshold", 0.95, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := PlanAutomatic(leadAt(StatusNew), AutomaticChange{
				Status:     StatusQualified,
				Confidence: tc.confidence,
			})
			if ok != tc.wantApply {
				t.Errorf("confidence %.2f: applied = %v, want %v", tc.confidence, ok, tc.wantApply)
			}
		})
	}
}

func TestPlanAutomaticSameStatusIsNoop(t *testing.T) {
	_, ok := PlanAutomatic(leadAt(StatusNegotiation), AutomaticChange{
		Status:     StatusNegotiation,
		Confidence: 0.72,
	})
	if ok {
		t.Error("same-status automatic change must be a no-op")
	}
}

func TestPlanAutomaticAppliesForwardMove(t *testing.T) {
	transition, ok := PlanAutomatic(leadAt(StatusInterested), AutomaticChange{
		Status:      StatusNegotiation,
		Confidence:  0.72,
		MessageText: "ainda negociando",
	})
	if !ok {
		t.Fatal("expected transition to be applied")
	}
	if transition.To != StatusNegotiation || transition.From != StatusInterested {
		t.Errorf("transition = %s -> %s, want interested -> negotiation", transition.From, transition.To)
	}
	if transition.Origin != OriginAI {
		t.Errorf("origin = %q, want ai", transition.Origin)
	}
	if transition.Confidence == nil || *transition.Confidence != 0.72 {
		t.Errorf("confidence not carried: %v", transition.Confidence)
	}
}

func TestPlanAutomaticWonGate(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		text       string
		wantApply  bool
	}{
		{"high confidence without keyword", 0.90, "vamos ver amanhã", false},
		{"high confidence with keyword", 0.90, "acabei de enviar o comprovante do pix", true},
		{"keyword but below won threshold", 0.80, "pagamento feito", false},
		{"keyword at won threshold", 0.85, "paguei agora", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transition, ok := PlanAutomatic(leadAt(StatusNegotiation), AutomaticChange{
				Status:      StatusWon,
				Confidence:  tc.confidence,
				Value:       floatPtr(1500),
				MessageText: tc.text,
			})
			if ok != tc.wantApply {
				t.Fatalf("applied = %v, want %v", ok, tc.wantApply)
			}
			if ok && (transition.Value == nil || *transition.Value != 1500) {
				t.Errorf("negotiated value not carried: %v", transition.Value)
			}
		})
	}
}

func TestPlanAutomaticWonLeadIsLocked(t *testing.T) {
	_, ok := PlanAutomatic(leadAt(StatusWon), AutomaticChange{
		Status:     StatusLost,
		Confidence: 0.99,
	})
	if ok {
		t.Error("automatic change away from won must be rejected")
	}
}

func TestPlanAutomaticRetrocessionReason(t *testing.T) {
	t.Run("provider reason kept", func(t *testing.T) {
		transition, ok := PlanAutomatic(leadAt(StatusNegotiation), AutomaticChange{
			Status:     StatusInterested,
			Confidence: 0.80,
			Reason:     "cliente pediu mais tempo",
		})
		if !ok {
			t.Fatal("expected retrocession to apply")
		}
		if transition.Reason == nil || *transition.Reason != "cliente pediu mais tempo" {
			t.Errorf("reason = %v, want provider reason", transition.Reason)
		}
	})

	t.Run("default reason when provider is silent", func(t *testing.T) {
		transition, ok := PlanAutomatic(leadAt(StatusNegotiation), AutomaticChange{
			Status:     StatusInterested,
			Confidence: 0.80,
		})
		if !ok {
			t.Fatal("expected retrocession to apply")
		}
		if transition.Reason == nil || *transition.Reason != DefaultRetrocessionReason {
			t.Errorf("reason = %v, want default retrocession reason", transition.Reason)
		}
	})
}

func TestPlanManualWonLock(t *testing.T) {
	for _, target := range []Status{StatusNew, StatusQualified, StatusInterested, StatusNegotiation, StatusFollowUp, StatusLost} {
		_, _, err := PlanManual(leadAt(StatusWon), ManualChange{
			Status:     target,
			ActingUser: uuid.New(),
			Reason:     "correção",
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("manual %s from won: err = %v, want ErrInvalidTransition", target, err)
		}
	}
}

func TestPlanManualMissingValue(t *testing.T) {
	_, _, err := PlanManual(leadAt(StatusNegotiation), ManualChange{
		Status:     StatusWon,
		ActingUser: uuid.New(),
	})
	if !errors.Is(err, ErrMissingValue) {
		t.Errorf("err = %v, want ErrMissingValue", err)
	}

	transition, ok, err := PlanManual(leadAt(StatusNegotiation), ManualChange{
		Status:     StatusWon,
		ActingUser: uuid.New(),
		Value:      floatPtr(2000),
	})
	if err != nil || !ok {
		t.Fatalf("won with value: ok=%v err=%v", ok, err)
	}
	if transition.Value == nil || *transition.Value != 2000 {
		t.Errorf("value not carried: %v", transition.Value)
	}
}

func TestPlanManualRetrocessionReason(t *testing.T) {
	_, _, err := PlanManual(leadAt(StatusNegotiation), ManualChange{
		Status:     StatusQualified,
		ActingUser: uuid.New(),
	})
	if !errors.Is(err, ErrMissingReason) {
		t.Errorf("err = %v, want ErrMissingReason", err)
	}

	transition, ok, err := PlanManual(leadAt(StatusNegotiation), ManualChange{
		Status:     StatusQualified,
		ActingUser: uuid.New(),
		Reason:     "número errado, voltando etapa",
	})
	if err != nil || !ok {
		t.Fatalf("retrocession with reason: ok=%v err=%v", ok, err)
	}
	if transition.Reason == nil || *transition.Reason != "número errado, voltando etapa" {
		t.Errorf("reason = %v, want the supplied reason", transition.Reason)
	}
	if transition.Origin != OriginHuman {
		t.Errorf("origin = %q, want human", transition.Origin)
	}
	if transition.ActingUserID == nil {
		t.Error("acting user must be recorded on manual transitions")
	}
}

func TestPlanManualSameStatusIsNoop(t *testing.T) {
	_, ok, err := PlanManual(leadAt(StatusInterested), ManualChange{
		Status:     StatusInterested,
		ActingUser: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("same-status manual change must be a no-op")
	}
}

func TestPlanManualUnknownStatus(t *testing.T) {
	_, _, err := PlanManual(leadAt(StatusNew), ManualChange{
		Status:     Status("archived"),
		ActingUser: uuid.New(),
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestPlanManualConfidenceUnchanged(t *testing.T) {
	transition, ok, err := PlanManual(leadAt(StatusNew), ManualChange{
		Status:     StatusQualified,
		ActingUser: uuid.New(),
	})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if transition.Confidence != nil {
		t.Error("manual transitions must not overwrite the stored confidence")
	}
}
