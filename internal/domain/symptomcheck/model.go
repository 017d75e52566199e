package symptomcheck

// Severity describes how serious a condition usually is.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityVaries   Severity = "varies"
)

var validSeverities = map[Severity]bool{
	SeverityMild: true, SeverityModerate: true, SeveritySevere: true, SeverityVaries: true,
}

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool { return validSeverities[s] }

// Style maps a severity onto the display class used by clients.
func (s Severity) Style() string {
	switch s {
	case SeverityMild:
		return "success"
	case SeverityModerate:
		return "warning"
	case SeveritySevere:
		return "danger"
	default:
		return "neutral"
	}
}

// Urgency describes how quickly a patient should seek care.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyVaries Urgency = "varies"
)

var validUrgencies = map[Urgency]bool{
	UrgencyLow: true, UrgencyMedium: true, UrgencyHigh: true, UrgencyVaries: true,
}

func (u Urgency) Valid() bool { return validUrgencies[u] }

// Condition is one static knowledge-base entry.
type Condition struct {
	Name            string   `json:"name" yaml:"name"`
	Symptoms        []string `json:"symptoms" yaml:"symptoms"`
	Severity        Severity `json:"severity" yaml:"severity"`
	Urgency         Urgency  `json:"urgency" yaml:"urgency"`
	Description     string   `json:"description" yaml:"description"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// Prediction is a condition scored against one symptom selection. It is
// never persisted.
type Prediction struct {
	Condition
	Confidence float64 `json:"confidence"`
}

// clone returns a deep copy so callers cannot reach the knowledge base's
// backing arrays.
func (c Condition) clone() Condition {
	out := c
	out.Symptoms = append([]string(nil), c.Symptoms...)
	out.Recommendations = append([]string(nil), c.Recommendations...)
	return out
}
