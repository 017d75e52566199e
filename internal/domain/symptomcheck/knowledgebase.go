package symptomcheck

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoConditionSymptoms marks a knowledge-base entry with an empty
	// symptom set. Such an entry would make confidence undefined.
	ErrNoConditionSymptoms = errors.New("condition has no symptoms")
	// ErrNoSelectedSymptoms is returned when a score is requested for an
	// empty selection.
	ErrNoSelectedSymptoms = errors.New("no symptoms selected")
	ErrInvalidCondition   = errors.New("invalid condition")
	ErrConditionNotFound  = errors.New("condition not found")
)

// KnowledgeBase is an immutable, ordered set of conditions plus the symptom
// vocabulary offered to users. Order is the order conditions were supplied
// in and is used as the tie-break between equal confidences.
type KnowledgeBase struct {
	conditions []Condition
	index      map[string]int
	vocabulary []string
	known      map[string]struct{}
}

// NewKnowledgeBase validates conditions and builds a knowledge base. The
// resulting vocabulary is the explicit checklist followed by any condition
// symptom it does not already contain.
func NewKnowledgeBase(conditions []Condition, vocabulary []string) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		conditions: make([]Condition, 0, len(conditions)),
		index:      make(map[string]int, len(conditions)),
		known:      make(map[string]struct{}),
	}

	for _, label := range vocabulary {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("vocabulary: blank symptom label: %w", ErrInvalidCondition)
		}
		kb.addLabel(label)
	}

	for i, c := range conditions {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("condition #%d: name is required: %w", i+1, ErrInvalidCondition)
		}
		if _, dup := kb.index[c.Name]; dup {
			return nil, fmt.Errorf("condition %q: duplicate name: %w", c.Name, ErrInvalidCondition)
		}
		if len(c.Symptoms) == 0 {
			return nil, fmt.Errorf("condition %q: %w", c.Name, ErrNoConditionSymptoms)
		}
		if !c.Severity.Valid() {
			return nil, fmt.Errorf("condition %q: invalid severity %q: %w", c.Name, c.Severity, ErrInvalidCondition)
		}
		if !c.Urgency.Valid() {
			return nil, fmt.Errorf("condition %q: invalid urgency %q: %w", c.Name, c.Urgency, ErrInvalidCondition)
		}

		entry := c.clone()
		entry.Symptoms = dedupe(entry.Symptoms)
		for _, s := range entry.Symptoms {
			if strings.TrimSpace(s) == "" {
				return nil, fmt.Errorf("condition %q: blank symptom label: %w", c.Name, ErrInvalidCondition)
			}
			kb.addLabel(s)
		}

		kb.index[entry.Name] = len(kb.conditions)
		kb.conditions = append(kb.conditions, entry)
	}

	return kb, nil
}

func (kb *KnowledgeBase) addLabel(label string) {
	if _, ok := kb.known[label]; ok {
		return
	}
	kb.known[label] = struct{}{}
	kb.vocabulary = append(kb.vocabulary, label)
}

// Len returns the number of conditions.
func (kb *KnowledgeBase) Len() int { return len(kb.conditions) }

// Conditions returns a copy of every condition in knowledge-base order.
func (kb *KnowledgeBase) Conditions() []Condition {
	out := make([]Condition, len(kb.conditions))
	for i, c := range kb.conditions {
		out[i] = c.clone()
	}
	return out
}

// Condition looks up a condition by its exact name.
func (kb *KnowledgeBase) Condition(name string) (Condition, bool) {
	i, ok := kb.index[name]
	if !ok {
		return Condition{}, false
	}
	return kb.conditions[i].clone(), true
}

// Vocabulary returns the symptom labels a user may select.
func (kb *KnowledgeBase) Vocabulary() []string {
	return append([]string(nil), kb.vocabulary...)
}

// Knows reports whether label is part of the vocabulary. Matching is exact.
func (kb *KnowledgeBase) Knows(label string) bool {
	_, ok := kb.known[label]
	return ok
}

// dedupe drops repeated labels, keeping first occurrences in order.
func dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
