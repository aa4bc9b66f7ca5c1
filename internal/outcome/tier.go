package outcome

type Tier string

const (
	TierRetry     Tier = "retry"
	TierEncourage Tier = "encourage"
	TierChampion  Tier = "champion"
)

type Thresholds struct {
	Champion  float64
	Encourage float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Champion: 85, Encourage: 70}
}

// Classify buckets a score. Boundaries belong to the higher tier.
func Classify(score float64, th Thresholds) Tier {
	switch {
	case score >= th.Champion:
		return TierChampion
	case score >= th.Encourage:
		return TierEncourage
	default:
		return TierRetry
	}
}
