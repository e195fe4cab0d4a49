package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// Input is the market context handed to the model.
type Input struct {
	Symbol        string
	Type          asset.Type
	Quote         asset.Quote
	Features      Features
	NewsTitles    []string
	SentimentAvg  float64
	HasSentiment  bool
}

// Output is the model's structured assessment, after sanitizing and
// normalizing its JSON reply.
type Output struct {
	Recommendation   analysis.Recommendation
	Confidence       int
	Reasoning        string
	TechnicalScore   int
	FundamentalScore *int
	SentimentScore   int
	RiskLevel        analysis.RiskLevel
	TargetPrice      *float64
	StopLoss         *float64
}

// Generator produces an assessment from market context.
type Generator interface {
	Generate(ctx context.Context, in Input) (Output, error)
}

const defaultLLMBaseURL = "https://api.deepseek.com/v1"

// Client calls an OpenAI-compatible chat completions endpoint and parses the
// JSON object the model was asked to produce.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	log     *logger.Logger
}

var _ Generator = (*Client)(nil)

// NewClient builds an LLM client. Model defaults to deepseek-chat, the
// HTTP client to a 30s timeout.
func NewClient(baseURL, apiKey, model string, client *http.Client, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultLLMBaseURL
	}
	if model == "" {
		model = "deepseek-chat"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("llm")
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, model: model, client: client, log: log}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt and decodes the structured reply.
func (c *Client) Generate(ctx context.Context, in Input) (Output, error) {
	content, err := c.complete(ctx, []chatMessage{{Role: "user", Content: buildPrompt(in)}})
	if err != nil {
		return Output{}, err
	}
	out, err := DecodeOutput(content)
	if err != nil {
		return Output{}, fmt.Errorf("llm: %w", err)
	}
	return out, nil
}

// ChatTurn is one message of a free-form conversation.
type ChatTurn struct {
	Role    string
	Content string
}

// Chat sends a conversation with an optional system prompt and returns the
// assistant's reply verbatim.
func (c *Client) Chat(ctx context.Context, system string, turns []ChatTurn) (string, error) {
	messages := make([]chatMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, turn := range turns {
		messages = append(messages, chatMessage(turn))
	}
	return c.complete(ctx, messages)
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("llm: api key not configured")
	}

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("llm: read body: %w", err)
	}

	var reply chatResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(reply.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices")
	}
	return reply.Choices[0].Message.Content, nil
}

func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial analyst. Assess %s (%s).\n\n", in.Symbol, in.Type)
	fmt.Fprintf(&b, "Price: %.2f, 24h change: %.2f%%, volume: %.0f\n",
		in.Quote.Price, in.Quote.ChangePercent, in.Quote.Volume)
	fmt.Fprintf(&b, "Volatility: %.2f%%, trend: %s, support: %.2f, resistance: %.2f\n",
		in.Features.Volatility, in.Features.Trend, in.Features.Support, in.Features.Resistance)
	if in.HasSentiment {
		fmt.Fprintf(&b, "Average social sentiment: %.2f (0..1)\n", in.SentimentAvg)
	}
	if len(in.NewsTitles) > 0 {
		b.WriteString("Recent headlines:\n")
		for _, title := range in.NewsTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}
	b.WriteString(`
Reply with a single JSON object, no prose, with fields:
recommendation ("buy"|"sell"|"hold"), confidence (0-100), reasoning (string),
technical_score (0-100), fundamental_score (0-100, stocks only),
sentiment_score (0-100), risk_level ("low"|"medium"|"high"),
target_price (number), stop_loss (number).`)
	return b.String()
}

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// SanitizeModelJSON extracts the JSON object from a model reply: code fences
// are stripped and trailing commas removed, both common model glitches.
func SanitizeModelJSON(content string) string {
	content = strings.TrimSpace(content)
	if m := fenceRe.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	// Keep only the outermost object when the model added prose around it.
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}
	return trailingCommaRe.ReplaceAllString(content, "$1")
}

// outputAliases maps normalized field names to canonical ones. Normalization
// lowercases and drops underscores, so camelCase and snake_case collapse to
// the same key.
var outputAliases = map[string]string{
	"recommendation":   "recommendation",
	"action":           "recommendation",
	"confidence":       "confidence",
	"reasoning":        "reasoning",
	"rationale":        "reasoning",
	"technicalscore":   "technical_score",
	"fundamentalscore": "fundamental_score",
	"sentimentscore":   "sentiment_score",
	"risklevel":        "risk_level",
	"risk":             "risk_level",
	"targetprice":      "target_price",
	"pricetarget":      "target_price",
	"stoploss":         "stop_loss",
}

func normalizeField(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// DecodeOutput parses a sanitized model reply. Unknown fields are ignored;
// missing ones take safe defaults (hold / 50 / medium).
func DecodeOutput(content string) (Output, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(SanitizeModelJSON(content)), &fields); err != nil {
		return Output{}, fmt.Errorf("parse model reply: %w", err)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	canonical := make(map[string]json.RawMessage, len(fields))
	chosen := make(map[string]string, len(fields))
	for _, name := range names {
		key, ok := outputAliases[normalizeField(name)]
		if !ok {
			continue
		}
		// When the model emits both spellings, the camelCase one wins.
		if prev, taken := chosen[key]; taken {
			if strings.Contains(name, "_") || !strings.Contains(prev, "_") {
				continue
			}
		}
		chosen[key] = name
		canonical[key] = fields[name]
	}

	out := Output{
		Recommendation: analysis.RecommendHold,
		Confidence:     50,
		RiskLevel:      analysis.RiskMedium,
	}

	if raw, ok := canonical["recommendation"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			switch analysis.Recommendation(strings.ToLower(strings.TrimSpace(s))) {
			case analysis.RecommendBuy:
				out.Recommendation = analysis.RecommendBuy
			case analysis.RecommendSell:
				out.Recommendation = analysis.RecommendSell
			}
		}
	}
	if raw, ok := canonical["confidence"]; ok {
		if v, ok := decodeNumber(raw); ok {
			out.Confidence = int(v)
		}
	}
	if raw, ok := canonical["reasoning"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			out.Reasoning = s
		}
	}
	if raw, ok := canonical["technical_score"]; ok {
		if v, ok := decodeNumber(raw); ok {
			out.TechnicalScore = int(v)
		}
	}
	if raw, ok := canonical["fundamental_score"]; ok {
		if v, ok := decodeNumber(raw); ok {
			score := int(v)
			out.FundamentalScore = &score
		}
	}
	if raw, ok := canonical["sentiment_score"]; ok {
		if v, ok := decodeNumber(raw); ok {
			out.SentimentScore = int(v)
		}
	}
	if raw, ok := canonical["risk_level"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			switch analysis.RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
			case analysis.RiskLow:
				out.RiskLevel = analysis.RiskLow
			case analysis.RiskHigh:
				out.RiskLevel = analysis.RiskHigh
			}
		}
	}
	if raw, ok := canonical["target_price"]; ok {
		if v, ok := decodeNumber(raw); ok && v > 0 {
			out.TargetPrice = &v
		}
	}
	if raw, ok := canonical["stop_loss"]; ok {
		if v, ok := decodeNumber(raw); ok && v > 0 {
			out.StopLoss = &v
		}
	}
	return out, nil
}

// decodeNumber accepts both JSON numbers and numeric strings, another
// tolerated model glitch.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
