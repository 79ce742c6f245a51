package classifier

import (
	"context"
	"testing"

	"leadflow_backend/internal/leads/domain"
)

func TestRuleProviderKeywordMatching(t *testing.T) {
	cases := []struct {
		text       string
		wantStatus domain.Status
	}{
		{"segue o comprovante do pagamento", domain.StatusWon},
		{"paguei agora pelo app", domain.StatusWon},
		{"não quero mais, obrigado", domain.StatusLost},
		{"achei muito caro", domain.StatusNegotiation},
		{"consegue um desconto?", domain.StatusNegotiation},
		{"me chama depois, essa semana tá corrida", domain.StatusFollowUp},
		{"me conta mais sobre o produto", domain.StatusInterested},
		{"quanto custa o plano anual?", domain.StatusInterested},
	}

	provider := NewRuleProvider()
	for _, tc := range cases {
		res, err := provider.Classify(context.Background(), Payload{MessageText: tc.text})
		if err != nil {
			t.Fatalf("Classify(%q): %v", tc.text, err)
		}
		if res.Status != string(tc.wantStatus) {
			t.Errorf("Classify(%q).Status = %q, want %q", tc.text, res.Status, tc.wantStatus)
		}
		if res.Confidence < domain.MinAutoConfidence {
			t.Errorf("Classify(%q).Confidence = %v, matched rules must clear the gate", tc.text, res.Confidence)
		}
	}
}

func TestRuleProviderPriceObjection(t *testing.T) {
	res, err := NewRuleProvider().Classify(context.Background(), Payload{MessageText: "tá caro demais pra mim"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Objection != "preço" {
		t.Errorf("objection = %q, want preço", res.Objection)
	}
}

func TestRuleProviderUnmatchedStaysBelowGate(t *testing.T) {
	res, err := NewRuleProvider().Classify(context.Background(), Payload{MessageText: "bom dia"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence >= domain.MinAutoConfidence {
		t.Errorf("unmatched confidence = %v, must stay below %v", res.Confidence, domain.MinAutoConfidence)
	}
}

func TestRuleProviderPaymentBeatsNegotiation(t *testing.T) {
	// "pix enviado" also contains no negotiation keyword, but a message with
	// both must resolve to won because payment rules are evaluated first.
	res, err := NewRuleProvider().Classify(context.Background(), Payload{MessageText: "fechamos a proposta, pix enviado"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != string(domain.StatusWon) {
		t.Errorf("status = %q, want won", res.Status)
	}
}
