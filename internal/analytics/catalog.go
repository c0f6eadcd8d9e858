package analytics

import "github.com/pbaille/mindatlas/internal/domain"

// Concern is one option of the check-in screen
type Concern struct {
	Value     string
	Label     string
	Sentiment domain.Sentiment
}

// OtherConcern is the free-text option
const OtherConcern = "other"

// Concerns is the check-in catalog, in display order
var Concerns = []Concern{
	{"anxiety", "Anxiety or worry", domain.SentimentNegative},
	{"low_mood", "Low mood or sadness", domain.SentimentNegative},
	{"stress", "Stress management", domain.SentimentNegative},
	{"relationships", "Relationship challenges", domain.SentimentNegative},
	{"work", "Work or career concerns", domain.SentimentNeutral},
	{"confidence", "Self-doubt or confidence", domain.SentimentNegative},
	{"physical_health", "Physical health", domain.SentimentNeutral},
	{"financial", "Financial stress", domain.SentimentNegative},
	{"personal_growth", "Personal growth", domain.SentimentPositive},
	{"life_transitions", "Life transitions", domain.SentimentNeutral},
	{OtherConcern, "Other", domain.SentimentNeutral},
}

// LookupConcern finds a catalog entry by value
func LookupConcern(value string) (Concern, bool) {
	for _, c := range Concerns {
		if c.Value == value {
			return c, true
		}
	}
	return Concern{}, false
}

// DetermineSentiment derives the journey sentiment from the selected
// concerns. Values outside the catalog are ignored.
//
// mixed: positive and negative each make up at least a quarter
// positive/negative: that side is more than half
// neutral: anything else, including no known concern at all
func DetermineSentiment(values []string) domain.Sentiment {
	var total, positive, negative int
	for _, v := range values {
		c, ok := LookupConcern(v)
		if !ok {
			continue
		}
		total++
		switch c.Sentiment {
		case domain.SentimentPositive:
			positive++
		case domain.SentimentNegative:
			negative++
		}
	}
	if total == 0 {
		return domain.SentimentNeutral
	}

	positiveRatio := float64(positive) / float64(total)
	negativeRatio := float64(negative) / float64(total)

	switch {
	case positive > 0 && negative > 0 && positiveRatio >= 0.25 && negativeRatio >= 0.25:
		return domain.SentimentMixed
	case positiveRatio > 0.5:
		return domain.SentimentPositive
	case negativeRatio > 0.5:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
