package types

// ConsensusBaseline is a trusted reference extraction built offline from multiple sources.
type ConsensusBaseline struct {
	Consensus  ExtractionResult   `json:"consensus"`
	Confidence BaselineConfidence `json:"confidence"`
}

// BaselineConfidence holds the baseline's own agreement measures.
// Overall may be stored as a 0-1 ratio or a 0-100 percentage.
type BaselineConfidence struct {
	Overall float64            `json:"overall"`
	Fields  map[string]float64 `json:"fields,omitempty"`
}

// Strength returns Overall normalised to [0, 1].
func (c BaselineConfidence) Strength() float64 {
	overall := c.Overall
	if overall > 1 {
		overall /= 100
	}
	if overall < 0 {
		return 0
	}
	if overall > 1 {
		return 1
	}
	return overall
}

// BaselineCorpus maps source-document identifiers to baselines.
type BaselineCorpus map[string]ConsensusBaseline
