package types

import "encoding/json"

// CVRecord is the sectioned CV view scored by the completeness scorers.
type CVRecord struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	Education    []Education  `json:"education"`
	Experience   []Experience `json:"experience"`
	Skills       []Text       `json:"skills"`
}

// PersonalInfo holds identity and contact fields
type PersonalInfo struct {
	Name     Text `json:"name"`
	Email    Text `json:"email"`
	Phone    Text `json:"phone,omitempty"`
	Location Text `json:"location,omitempty"`
	Website  Text `json:"website,omitempty"`
	Summary  Text `json:"summary,omitempty"`
}

// Education is a single education entry
type Education struct {
	Institution Text `json:"institution"`
	Degree      Text `json:"degree"`
	Field       Text `json:"field,omitempty"`
	StartDate   Text `json:"startDate,omitempty"`
	EndDate     Text `json:"endDate,omitempty"`
	GPA         Text `json:"gpa,omitempty"`
}

// Experience is a single work experience entry
type Experience struct {
	Company     Text   `json:"company"`
	Position    Text   `json:"position"`
	StartDate   Text   `json:"startDate,omitempty"`
	EndDate     Text   `json:"endDate,omitempty"`
	Location    Text   `json:"location,omitempty"`
	Description []Text `json:"description,omitempty"`
}

// HasCVSections reports whether a generic JSON object carries any CV section key.
func HasCVSections(value any) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}
	for _, key := range []string{"personalInfo", "education", "experience", "skills"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

// DecodeCV converts a generic JSON tree into a CVRecord. Sections and entries with the
// wrong JSON type are dropped individually rather than failing the whole record.
func DecodeCV(value any) (*CVRecord, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var record CVRecord
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return &record, nil
	}

	if raw, ok := sections["personalInfo"]; ok {
		_ = json.Unmarshal(raw, &record.PersonalInfo)
	}
	record.Education = decodeEntries[Education](sections["education"])
	record.Experience = decodeEntries[Experience](sections["experience"])
	record.Skills = decodeEntries[Text](sections["skills"])
	return &record, nil
}

func decodeEntries[T any](raw json.RawMessage) []T {
	if !isJSONArray(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var entry T
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}
