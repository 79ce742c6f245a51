package classifier

import (
	"context"
	"strings"

	"leadflow_backend/internal/leads/domain"
)

// RuleProvider is the deterministic keyword fallback used when the remote
// provider is unavailable. It never fails; unmatched messages get a low
// confidence result that the state machine ignores.
type RuleProvider struct{}

// NewRuleProvider creates the keyword rule provider.
func NewRuleProvider() *RuleProvider { return &RuleProvider{} }

// Name implements Provider.
func (p *RuleProvider) Name() string { return "rules" }

type keywordRule struct {
	keywords   []string
	status     domain.Status
	confidence float64
	objection  string
}

// Rules are evaluated in order; the first match wins. Payment confirmations
// come first so a closing message is not mistaken for negotiation.
var keywordRules = []keywordRule{
	{
		keywords:   []string{"comprovante", "paguei", "pagamento feito", "pix enviado", "transferi", "pago"},
		status:     domain.StatusWon,
		confidence: 0.90,
	},
	{
		keywords:   []string{"não quero", "nao quero", "não tenho interesse", "nao tenho interesse", "desisti", "cancelar"},
		status:     domain.StatusLost,
		confidence: 0.80,
	},
	{
		keywords:   []string{"muito caro", "caro demais", "tá caro", "ta caro", "fora do orçamento", "fora do orcamento"},
		status:     domain.StatusNegotiation,
		confidence: 0.72,
		objection:  "preço",
	},
	{
		keywords:   []string{"desconto", "negociando", "proposta", "orçamento", "orcamento", "parcelar"},
		status:     domain.StatusNegotiation,
		confidence: 0.75,
	},
	{
		keywords:   []string{"depois a gente vê", "semana que vem", "me chama depois", "mais pra frente", "te aviso"},
		status:     domain.StatusFollowUp,
		confidence: 0.72,
	},
	{
		keywords:   []string{"tenho interesse", "quero saber mais", "me conta mais", "gostei", "quanto custa", "quanto fica"},
		status:     domain.StatusInterested,
		confidence: 0.72,
	},
}

// unmatchedConfidence is deliberately below the automatic gate so an
// unmatched message never moves a lead.
const unmatchedConfidence = 0.30

// Classify implements Provider.
func (p *RuleProvider) Classify(_ context.Context, payload Payload) (Result, error) {
	text := strings.ToLower(payload.MessageText)

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return Result{
					Status:     string(rule.status),
					Confidence: rule.confidence,
					Objection:  rule.objection,
				}, nil
			}
		}
	}

	return Result{
		Status:     string(domain.StatusQualified),
		Confidence: unmatchedConfidence,
	}, nil
}

var _ Provider = (*RuleProvider)(nil)
