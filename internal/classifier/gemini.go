package classifier

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"leadflow_backend/internal/settings"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// Settings keys consulted on every classification attempt. Values fall back
// to the environment configuration when unset.
const (
	SettingAPIKey    = "classifier.api_key"
	SettingBaseURL   = "classifier.base_url"
	SettingModel     = "classifier.model"
	SettingSSLVerify = "classifier.ssl_verify"
)

const geminiSystemInstruction = `Você é um classificador de conversas de vendas pelo WhatsApp.
Analise a última mensagem do cliente no contexto do histórico e responda APENAS com um objeto JSON:
{"status": "...", "confidence": 0.0, "negotiated_value": null, "objection": null, "reason": null}
- status: um de new, qualified, interested, negotiation, follow_up, won, lost
- confidence: número entre 0 e 1
- negotiated_value: valor numérico negociado, se mencionado
- objection: objeção levantada pelo cliente (ex: "preço", "prazo"), se houver
- reason: explicação curta quando o lead regride de etapa
Se não tiver certeza do status, omita o campo confidence em vez de reportar um valor próximo de zero.`

// GeminiProvider classifies messages with the Gemini API. Credentials and
// endpoint are resolved through the settings store on every call so key
// rotation takes effect within the cache TTL.
type GeminiProvider struct {
	store *settings.Store
	log   *logger.Logger

	fallbackKey   string
	fallbackModel string

	mu             sync.Mutex
	client         *genai.Client
	clientKey      string
	clientBaseURL  string
	clientInsecure bool
}

// NewGeminiProvider creates the remote LLM provider.
func NewGeminiProvider(store *settings.Store, cfg config.ClassifierConfig, log *logger.Logger) *GeminiProvider {
	return &GeminiProvider{
		store:         store,
		log:           log,
		fallbackKey:   cfg.GetClassifierAPIKey(),
		fallbackModel: cfg.GetClassifierModel(),
	}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// geminiResult is the JSON shape the model is instructed to emit.
type geminiResult struct {
	Status          string   `json:"status"`
	Confidence      float64  `json:"confidence"`
	NegotiatedValue *float64 `json:"negotiated_value"`
	Objection       *string  `json:"objection"`
	Reason          *string  `json:"reason"`
}

// Classify implements Provider.
func (p *GeminiProvider) Classify(ctx context.Context, payload Payload) (Result, error) {
	apiKey := p.store.Get(ctx, SettingAPIKey, p.fallbackKey)
	if apiKey == "" {
		return Result{}, fmt.Errorf("gemini: api key not configured")
	}
	baseURL := p.store.Get(ctx, SettingBaseURL, "")
	model := p.store.Get(ctx, SettingModel, p.fallbackModel)
	insecure := !p.store.GetBool(ctx, SettingSSLVerify, true)

	client, err := p.clientFor(ctx, apiKey, baseURL, insecure)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: create client: %w", err)
	}

	temperature := float32(0.1)
	genCfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: geminiSystemInstruction}}},
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(buildPrompt(payload)), genCfg)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: generate content: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return Result{}, fmt.Errorf("gemini: empty response")
	}

	var parsed geminiResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return Result{}, fmt.Errorf("gemini: parse response %q: %w", raw, err)
	}

	res := Result{
		Status:          parsed.Status,
		Confidence:      parsed.Confidence,
		NegotiatedValue: parsed.NegotiatedValue,
		Raw:             raw,
	}
	if parsed.Objection != nil {
		res.Objection = *parsed.Objection
	}
	if parsed.Reason != nil {
		res.Reason = *parsed.Reason
	}
	return res, nil
}

// clientFor reuses the cached client while the resolved settings are
// unchanged, rebuilding it on key or endpoint rotation.
func (p *GeminiProvider) clientFor(ctx context.Context, apiKey, baseURL string, insecure bool) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.clientKey == apiKey && p.clientBaseURL == baseURL && p.clientInsecure == insecure {
		return p.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	if insecure {
		cc.HTTPClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}

	p.client = client
	p.clientKey = apiKey
	p.clientBaseURL = baseURL
	p.clientInsecure = insecure
	return client, nil
}

func buildPrompt(payload Payload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lead: %s (telefone %s), status atual: %s\n",
		payload.LeadName, payload.LeadPhone, payload.LeadStatus)
	if len(payload.History) > 0 {
		b.WriteString("Histórico recente:\n")
		for _, line := range payload.History {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "Última mensagem do cliente: %s\n", payload.MessageText)
	return b.String()
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var _ Provider = (*GeminiProvider)(nil)
