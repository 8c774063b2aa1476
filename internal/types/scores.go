package types

// AccuracyScore is the universal scorer output contract.
// Score, Completeness and Confidence are percentages in [0, 100].
type AccuracyScore struct {
	Score         float64            `json:"score"`
	Completeness  float64            `json:"completeness"`
	Confidence    float64            `json:"confidence"`
	FieldScores   map[string]float64 `json:"fieldScores"`
	MissingFields []string           `json:"missingFields"`
}

// ConsensusSourceNone marks a score computed without any baseline.
const ConsensusSourceNone = "none"

// ConsensusScore extends AccuracyScore with baseline comparison details.
type ConsensusScore struct {
	AccuracyScore
	ConsensusSource    string  `json:"consensusSource"`
	ConsensusStrength  float64 `json:"consensusStrength"`
	ComparedFields     int     `json:"comparedFields"`
	StructuralFidelity float64 `json:"structuralFidelity"`
	FieldAccuracy      float64 `json:"fieldAccuracy"`
}

// StructuralResult is the structural validator output.
type StructuralResult struct {
	StructuralScore   float64  `json:"structuralScore"`
	Shape             Shape    `json:"shape"`
	CategoryValidity  float64  `json:"categoryValidity"`
	CreditValidity    float64  `json:"creditValidity"`
	VocabularyScore   float64  `json:"vocabularyScore"`
	UnknownCategories []string `json:"unknownCategories,omitempty"`
}

// EmptinessResult is the emptiness calculator output.
// ExpectedPercentage is set only when an expected field count was supplied and may exceed 100.
type EmptinessResult struct {
	Percentage         float64  `json:"percentage"`
	TotalFields        int      `json:"totalFields"`
	NonEmptyFields     int      `json:"nonEmptyFields"`
	ExpectedPercentage *float64 `json:"expectedPercentage,omitempty"`
}
