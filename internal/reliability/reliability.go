// Package reliability scores how far a diagnosis can be trusted.
package reliability

// Level buckets the reliability score.
type Level string

const (
	LevelHigh    Level = "high"
	LevelMedium  Level = "medium"
	LevelLow     Level = "low"
	LevelVeryLow Level = "very_low"
)

// Assessment is the reliability of one analysis.
type Assessment struct {
	Score          int      `json:"score"`
	Level          Level    `json:"level"`
	Factors        []string `json:"factors"`
	Recommendation string   `json:"recommendation"`
}

var recommendations = map[Level]string{
	LevelHigh:    "Results are reliable, but still consult experts for treatment decisions",
	LevelMedium:  "Results may be helpful, but verify with additional sources",
	LevelLow:     "Results should be used with caution - seek professional advice",
	LevelVeryLow: "Results are unreliable - do not base treatment decisions on this analysis",
}

type band struct {
	above  float64
	points int
	factor string
}

var confidenceBands = []band{
	{0.8, 40, "High model confidence"},
	{0.6, 25, "Moderate model confidence"},
	{0.4, 15, "Low model confidence"},
}

var qualityBands = []band{
	{0.8, 30, "High image quality"},
	{0.6, 20, "Good image quality"},
	{0.4, 10, "Fair image quality"},
}

func grade(v float64, bands []band, fallback string) (int, string) {
	for _, b := range bands {
		if v > b.above {
			return b.points, b.factor
		}
	}
	return 0, fallback
}

// Score combines prediction confidence, image quality and model capacity
// into a 0..100 score.
func Score(topConfidence, qualityScore float64, highCapacity bool) Assessment {
	cp, cf := grade(topConfidence, confidenceBands, "Very low model confidence")
	qp, qf := grade(qualityScore, qualityBands, "Poor image quality")
	mp, mf := 0, "Development/fallback model"
	if highCapacity {
		mp, mf = 30, "Production model"
	}

	score := cp + qp + mp
	level := LevelFor(score)
	return Assessment{
		Score:          score,
		Level:          level,
		Factors:        []string{cf, qf, mf},
		Recommendation: recommendations[level],
	}
}

// LevelFor maps a score to its level.
func LevelFor(score int) Level {
	switch {
	case score >= 80:
		return LevelHigh
	case score >= 60:
		return LevelMedium
	case score >= 40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// Weak reports whether the level calls for independent verification.
func (l Level) Weak() bool {
	return l == LevelLow || l == LevelVeryLow
}
