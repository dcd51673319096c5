package ewc

// WasteCode is one European Waste Catalogue entry as presented to the user.
// Values are only built by a Classifier and are treated as immutable.
type WasteCode struct {
	Code        string   `json:"code"`        // "XX XX XX", "*" suffix when hazardous
	Description string   `json:"description"` // official wording
	Category    string   `json:"category"`    // EWC chapter
	Hazardous   bool     `json:"hazardous"`
	Confidence  *float64 `json:"confidence,omitempty"` // 0..100
}

// Clone returns a copy that shares no memory with w.
func (w WasteCode) Clone() WasteCode {
	if w.Confidence != nil {
		v := *w.Confidence
		w.Confidence = &v
	}
	return w
}

// CloneAll deep-copies a result list. Never returns nil.
func CloneAll(in []WasteCode) []WasteCode {
	out := make([]WasteCode, len(in))
	for i, w := range in {
		out[i] = w.Clone()
	}
	return out
}

// RawCode is one item of the model's JSON answer before normalization.
// Pointers let the parser tell a missing required field from a zero value.
type RawCode struct {
	Code        *string  `json:"code"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Hazardous   *bool    `json:"hazardous"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// Missing lists required fields absent from the item.
func (r RawCode) Missing() []string {
	var out []string
	if r.Code == nil {
		out = append(out, "code")
	}
	if r.Description == nil {
		out = append(out, "description")
	}
	if r.Category == nil {
		out = append(out, "category")
	}
	if r.Hazardous == nil {
		out = append(out, "hazardous")
	}
	return out
}

// WasteCode converts the item as-is; call Normalize on the result.
func (r RawCode) WasteCode() WasteCode {
	var w WasteCode
	if r.Code != nil {
		w.Code = *r.Code
	}
	if r.Description != nil {
		w.Description = *r.Description
	}
	if r.Category != nil {
		w.Category = *r.Category
	}
	if r.Hazardous != nil {
		w.Hazardous = *r.Hazardous
	}
	if r.Confidence != nil {
		v := *r.Confidence
		w.Confidence = &v
	}
	return w
}
