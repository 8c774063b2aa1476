package types

// QualityReport is the engine output: the resolved payload, its typed view and the scores.
// Value keeps payloads the typed view cannot represent, such as CV records.
type QualityReport struct {
	Value      any
	Extraction *ExtractionResult
	Metadata   *Metadata
}

// Enriched returns the payload with the metadata block attached under "metadata".
// Object payloads are shallow-copied; any other payload is wrapped under "value".
func (r *QualityReport) Enriched() map[string]any {
	obj, ok := r.Value.(map[string]any)
	if !ok {
		return map[string]any{"value": r.Value, "metadata": r.Metadata}
	}
	out := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	out["metadata"] = r.Metadata
	return out
}
