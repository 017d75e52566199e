package symptomcheck

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/medconnect/medconnect/internal/domain/symptomcheck")

const (
	urgentAdvisory = "Seek immediate medical attention. Based on your symptoms, we recommend consulting a healthcare provider as soon as possible."
	noMatchMessage = "No matching conditions found. Please consult a healthcare provider for proper diagnosis."
	disclaimer     = "This assessment is informational and is not a medical diagnosis."
)

// UnknownSymptomsError lists selected labels that are not in the vocabulary.
type UnknownSymptomsError struct {
	Labels []string
}

func (e *UnknownSymptomsError) Error() string {
	return fmt.Sprintf("unknown symptoms: %s", strings.Join(e.Labels, ", "))
}

// AssessedCondition is a prediction annotated for display.
type AssessedCondition struct {
	Prediction
	ConfidencePercent int      `json:"confidence_percent"`
	MatchedSymptoms   []string `json:"matched_symptoms"`
	SeverityStyle     string   `json:"severity_style"`
	UrgentCare        bool     `json:"urgent_care"`
}

// Assessment is the answer to one symptom check.
type Assessment struct {
	SelectedSymptoms   []string            `json:"selected_symptoms"`
	Predictions        []AssessedCondition `json:"predictions"`
	RequiresUrgentCare bool                `json:"requires_urgent_care"`
	Advisory           string              `json:"advisory,omitempty"`
	Message            string              `json:"message,omitempty"`
	Disclaimer         string              `json:"disclaimer"`
}

type Service struct {
	kb        *KnowledgeBase
	predictor *Predictor
}

// NewService wires a loaded knowledge base to a predictor. A nil predictor
// means DefaultPredictor.
func NewService(kb *KnowledgeBase, predictor *Predictor) *Service {
	if predictor == nil {
		predictor = DefaultPredictor()
	}
	return &Service{kb: kb, predictor: predictor}
}

// Assess validates a selection against the vocabulary and ranks conditions.
func (s *Service) Assess(ctx context.Context, symptoms []string) (*Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := tracer.Start(ctx, "symptomcheck.Assess")
	defer span.End()

	selected := dedupe(symptoms)
	span.SetAttributes(attribute.Int("symptoms.selected", len(selected)))
	if len(selected) == 0 {
		span.SetStatus(codes.Error, "empty selection")
		return nil, fmt.Errorf("please select at least one symptom: %w", ErrNoSelectedSymptoms)
	}

	var unknown []string
	for _, label := range selected {
		if !s.kb.Knows(label) {
			unknown = append(unknown, label)
		}
	}
	if len(unknown) > 0 {
		span.SetStatus(codes.Error, "unknown symptoms")
		return nil, &UnknownSymptomsError{Labels: unknown}
	}

	set := toSet(selected)
	predictions := s.predictor.Predict(selected, s.kb)

	out := &Assessment{
		SelectedSymptoms: selected,
		Predictions:      make([]AssessedCondition, 0, len(predictions)),
		Disclaimer:       disclaimer,
	}
	for _, p := range predictions {
		urgent := p.Urgency == UrgencyHigh
		out.Predictions = append(out.Predictions, AssessedCondition{
			Prediction:        p,
			ConfidencePercent: int(math.Round(p.Confidence)),
			MatchedSymptoms:   matched(p.Symptoms, set),
			SeverityStyle:     p.Severity.Style(),
			UrgentCare:        urgent,
		})
		if urgent {
			out.RequiresUrgentCare = true
		}
	}

	if out.RequiresUrgentCare {
		out.Advisory = urgentAdvisory
	}
	if len(out.Predictions) == 0 {
		out.Message = noMatchMessage
	}
	span.SetAttributes(
		attribute.Int("predictions", len(out.Predictions)),
		attribute.Bool("urgent_care", out.RequiresUrgentCare),
	)
	return out, nil
}

// SearchSymptoms filters the vocabulary by a case-insensitive substring.
// An empty term returns the whole vocabulary.
func (s *Service) SearchSymptoms(term string) []string {
	vocabulary := s.kb.Vocabulary()
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return vocabulary
	}
	out := []string{}
	for _, label := range vocabulary {
		if strings.Contains(strings.ToLower(label), term) {
			out = append(out, label)
		}
	}
	return out
}

func (s *Service) ListConditions() []Condition {
	return s.kb.Conditions()
}

func (s *Service) GetCondition(name string) (*Condition, error) {
	c, ok := s.kb.Condition(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrConditionNotFound)
	}
	return &c, nil
}

// matched returns the condition symptoms present in selected, in condition
// order.
func matched(symptoms []string, selected map[string]struct{}) []string {
	out := []string{}
	for _, s := range symptoms {
		if _, ok := selected[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
