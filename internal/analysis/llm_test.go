package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object untouched",
			in:   `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "json code fence",
			in:   "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "bare code fence",
			in:   "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "trailing comma in object",
			in:   `{"a":1,}`,
			want: `{"a":1}`,
		},
		{
			name: "trailing comma in array",
			in:   `{"a":[1,2,],}`,
			want: `{"a":[1,2]}`,
		},
		{
			name: "prose around object",
			in:   "Here is my analysis:\n{\"a\":1}\nHope that helps!",
			want: `{"a":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeModelJSON(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeOutputSnakeCase(t *testing.T) {
	out, err := DecodeOutput(`{
		"recommendation": "buy",
		"confidence": 82,
		"reasoning": "momentum",
		"technical_score": 75,
		"fundamental_score": 60,
		"sentiment_score": 70,
		"risk_level": "low",
		"target_price": 210.5,
		"stop_loss": 180
	}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Recommendation != analysis.RecommendBuy {
		t.Fatalf("recommendation = %s", out.Recommendation)
	}
	if out.Confidence != 82 || out.TechnicalScore != 75 || out.SentimentScore != 70 {
		t.Fatalf("scores: %+v", out)
	}
	if out.FundamentalScore == nil || *out.FundamentalScore != 60 {
		t.Fatalf("fundamental score: %v", out.FundamentalScore)
	}
	if out.RiskLevel != analysis.RiskLow {
		t.Fatalf("risk = %s", out.RiskLevel)
	}
	if out.TargetPrice == nil || *out.TargetPrice != 210.5 {
		t.Fatalf("target: %v", out.TargetPrice)
	}
	if out.StopLoss == nil || *out.StopLoss != 180 {
		t.Fatalf("stop loss: %v", out.StopLoss)
	}
}

func TestDecodeOutputCamelCaseAliases(t *testing.T) {
	out, err := DecodeOutput(`{
		"recommendation": "sell",
		"confidence": "65",
		"technicalScore": 40,
		"riskLevel": "HIGH",
		"targetPrice": 95.5
	}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Recommendation != analysis.RecommendSell {
		t.Fatalf("recommendation = %s", out.Recommendation)
	}
	if out.Confidence != 65 {
		t.Fatalf("confidence = %d, numeric strings must decode", out.Confidence)
	}
	if out.TechnicalScore != 40 {
		t.Fatalf("technical = %d", out.TechnicalScore)
	}
	if out.RiskLevel != analysis.RiskHigh {
		t.Fatalf("risk = %s", out.RiskLevel)
	}
	if out.TargetPrice == nil || *out.TargetPrice != 95.5 {
		t.Fatalf("target: %v", out.TargetPrice)
	}
}

func TestDecodeOutputBothSpellingsPrefersCamelCase(t *testing.T) {
	out, err := DecodeOutput(`{
		"technicalScore": 80,
		"technical_score": 20,
		"target_price": 100,
		"targetPrice": 120
	}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TechnicalScore != 80 {
		t.Fatalf("technical = %d, want the camelCase value regardless of field order", out.TechnicalScore)
	}
	if out.TargetPrice == nil || *out.TargetPrice != 120 {
		t.Fatalf("target = %v, want the camelCase value", out.TargetPrice)
	}
}

func TestDecodeOutputDefaults(t *testing.T) {
	out, err := DecodeOutput(`{"reasoning":"thin reply"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Recommendation != analysis.RecommendHold {
		t.Fatalf("recommendation default = %s, want hold", out.Recommendation)
	}
	if out.Confidence != 50 {
		t.Fatalf("confidence default = %d, want 50", out.Confidence)
	}
	if out.RiskLevel != analysis.RiskMedium {
		t.Fatalf("risk default = %s, want medium", out.RiskLevel)
	}
	if out.FundamentalScore != nil {
		t.Fatal("fundamental score should stay nil when absent")
	}
}

func TestDecodeOutputInvalidValuesFallBack(t *testing.T) {
	out, err := DecodeOutput(`{"recommendation":"yolo","risk_level":"extreme","target_price":-5}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Recommendation != analysis.RecommendHold {
		t.Fatalf("unknown recommendation should fall back to hold, got %s", out.Recommendation)
	}
	if out.RiskLevel != analysis.RiskMedium {
		t.Fatalf("unknown risk should fall back to medium, got %s", out.RiskLevel)
	}
	if out.TargetPrice != nil {
		t.Fatal("non-positive target price should be dropped")
	}
}

func TestDecodeOutputGarbage(t *testing.T) {
	if _, err := DecodeOutput("the market looks good"); err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
}

func TestClientGenerate(t *testing.T) {
	reply := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{
				"role":    "assistant",
				"content": "```json\n{\"recommendation\":\"buy\",\"confidence\":77,}\n```",
			}},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewEncoder(w).Encode(reply); err != nil {
			t.Errorf("encode reply: %v", err)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "", srv.Client(), nil)
	out, err := client.Generate(context.Background(), Input{Symbol: "AAPL", Type: asset.TypeStock})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Recommendation != analysis.RecommendBuy || out.Confidence != 77 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestClientGenerateUnconfigured(t *testing.T) {
	client := NewClient("", "", "", nil, nil)
	if _, err := client.Generate(context.Background(), Input{Symbol: "AAPL"}); err == nil {
		t.Fatal("expected error without api key")
	}
}
