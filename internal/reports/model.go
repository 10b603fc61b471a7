package reports

import "time"

// ReportStatus is the lifecycle state of a coverage report.
type ReportStatus string

const (
	StatusProcessing ReportStatus = "processing"
	StatusCompleted  ReportStatus = "completed"
	StatusFailed     ReportStatus = "failed"
)

// Recommendation is the final verdict on a script.
type Recommendation string

const (
	RecommendationPass      Recommendation = "Pass"
	RecommendationConsider  Recommendation = "Consider"
	RecommendationRecommend Recommendation = "Recommend"
)

// Recommendation score thresholds over a 0-50 total.
const (
	recommendThreshold = 38
	considerThreshold  = 25
)

// RecommendationForScore maps a total score to a verdict.
func RecommendationForScore(total float64) Recommendation {
	switch {
	case total >= recommendThreshold:
		return RecommendationRecommend
	case total >= considerThreshold:
		return RecommendationConsider
	default:
		return RecommendationPass
	}
}

// ReportRetention is how long completed reports are kept.
const ReportRetention = 90 * 24 * time.Hour

// Subscore is one scored category with its rationale.
type Subscore struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// EvidenceQuote is a cited excerpt supporting a judgment.
type EvidenceQuote struct {
	Quote   string `json:"quote"`
	Page    int    `json:"page"`
	Context string `json:"context"`
}

// NormalizedCoverage is the validated analysis payload stored on a
// completed report.
type NormalizedCoverage struct {
	Logline            string              `json:"logline"`
	Synopsis           string              `json:"synopsis"`
	Subscores          map[string]Subscore `json:"subscores"`
	TotalScore         float64             `json:"totalScore"`
	Recommendation     Recommendation      `json:"recommendation"`
	OverallComments    string              `json:"overallComments"`
	Strengths          []string            `json:"strengths"`
	Weaknesses         []string            `json:"weaknesses"`
	CharacterNotes     string              `json:"characterNotes"`
	StructureAnalysis  string              `json:"structureAnalysis"`
	MarketPositioning  string              `json:"marketPositioning"`
	EvidenceQuotes     []EvidenceQuote     `json:"evidenceQuotes"`
}

// CoverageReport is a stored coverage record. Result is nil until the
// analysis completes.
type CoverageReport struct {
	ID           string              `json:"id"`
	ScriptID     string              `json:"scriptId,omitempty"`
	Title        string              `json:"title"`
	Genre        string              `json:"genre"`
	Comps        []string            `json:"comps"`
	Depth        string              `json:"depth"`
	Status       ReportStatus        `json:"status"`
	Result       *NormalizedCoverage `json:"result,omitempty"`
	ModelUsed    string              `json:"modelUsed,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty"`
	ExpiresAt    *time.Time          `json:"expiresAt,omitempty"`
}
