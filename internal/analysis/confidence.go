package analysis

// Confidence bounds for any persisted record.
const (
	MinConfidence = 20
	MaxConfidence = 98
)

// BlendConfidence adjusts the model's base confidence by data-quality
// factors. The result is pure in its inputs and clamped to
// [MinConfidence, MaxConfidence].
//
//	+5 per contributing data source, capped at +25
//	+5 when trading volume exceeds one million
//	+1 per news article, capped at +5
//	+5 when sentiment readings were available
//	-5 when the 24h move exceeds 10% either way
func BlendConfidence(base, sourceCount int, volume float64, newsCount int, hasSentiment bool, changePercent24h float64) int {
	score := base

	bonus := sourceCount * 5
	if bonus > 25 {
		bonus = 25
	}
	score += bonus

	if volume > 1_000_000 {
		score += 5
	}

	if newsCount > 5 {
		newsCount = 5
	}
	score += newsCount

	if hasSentiment {
		score += 5
	}

	if changePercent24h > 10 || changePercent24h < -10 {
		score -= 5
	}

	if score < MinConfidence {
		return MinConfidence
	}
	if score > MaxConfidence {
		return MaxConfidence
	}
	return score
}
