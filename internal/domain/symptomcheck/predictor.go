package symptomcheck

import "sort"

const (
	// DefaultThreshold is the confidence a condition must exceed to be
	// reported.
	DefaultThreshold = 20.0
	// DefaultLimit caps the number of reported conditions.
	DefaultLimit = 3
)

// Score returns the confidence, in [0, 100], that a condition with
// conditionSymptoms explains selectedSymptoms. Both arguments are sets:
// repeated labels count once. Labels are compared exactly.
//
// confidence = (coverage * 100) * precision, where coverage is the share of
// the condition's symptoms that were selected and precision is the share of
// the selection the condition explains.
func Score(conditionSymptoms, selectedSymptoms []string) (float64, error) {
	cond := dedupe(conditionSymptoms)
	if len(cond) == 0 {
		return 0, ErrNoConditionSymptoms
	}
	sel := dedupe(selectedSymptoms)
	if len(sel) == 0 {
		return 0, ErrNoSelectedSymptoms
	}
	return score(cond, toSet(sel)), nil
}

// score expects a de-duplicated, non-empty cond and a non-empty selection.
func score(cond []string, selected map[string]struct{}) float64 {
	matching := 0
	for _, s := range cond {
		if _, ok := selected[s]; ok {
			matching++
		}
	}
	coverage := float64(matching) / float64(len(cond))
	precision := float64(matching) / float64(len(selected))
	return (coverage * 100) * precision
}

// Predictor ranks knowledge-base conditions against a symptom selection.
type Predictor struct {
	// Threshold is exclusive: only confidences strictly above it survive.
	Threshold float64
	// Limit caps the result length. Zero or negative means no cap.
	Limit int
}

// DefaultPredictor returns a predictor with threshold 20 and limit 3.
func DefaultPredictor() *Predictor {
	return &Predictor{Threshold: DefaultThreshold, Limit: DefaultLimit}
}

// Predict scores every condition in kb against selected and returns the
// best matches, highest confidence first. It is a pure function:
//   - an empty selection yields an empty result without scoring
//   - kb is never mutated and returned records are copies
//   - equal confidences keep knowledge-base order
func (p *Predictor) Predict(selected []string, kb *KnowledgeBase) []Prediction {
	predictions := []Prediction{}
	sel := dedupe(selected)
	if len(sel) == 0 || kb == nil {
		return predictions
	}
	set := toSet(sel)

	for _, c := range kb.conditions {
		confidence := score(c.Symptoms, set)
		if confidence <= p.Threshold {
			continue
		}
		predictions = append(predictions, Prediction{Condition: c.clone(), Confidence: confidence})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})

	if p.Limit > 0 && len(predictions) > p.Limit {
		predictions = predictions[:p.Limit]
	}
	return predictions
}

// Predict runs the default predictor.
func Predict(selected []string, kb *KnowledgeBase) []Prediction {
	return DefaultPredictor().Predict(selected, kb)
}

func toSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}
