package ewc

import (
	"math"
	"strings"
)

// Normalize applies the catalogue rules the model is asked to follow but may
// not honour: canonical code format, asterisk means hazardous, confidence
// within 0..100.
func Normalize(w WasteCode) WasteCode {
	out := WasteCode{
		Code:        CanonicalCode(w.Code),
		Description: strings.TrimSpace(w.Description),
		Category:    strings.Join(strings.Fields(w.Category), " "),
		Hazardous:   w.Hazardous,
	}
	if IsHazardousCode(out.Code) {
		out.Hazardous = true
	}
	if w.Confidence != nil {
		if v, ok := ClampConfidence(*w.Confidence); ok {
			out.Confidence = &v
		}
	}
	return out
}

// NormalizeAll normalizes every item, keeping order. Never returns nil.
func NormalizeAll(in []WasteCode) []WasteCode {
	out := make([]WasteCode, 0, len(in))
	for _, w := range in {
		out = append(out, Normalize(w))
	}
	return out
}

// CanonicalCode formats a code holding exactly six digits as "XX XX XX",
// moving any asterisk to a single trailing one. Anything else is returned
// with whitespace collapsed.
func CanonicalCode(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	digits := make([]byte, 0, 6)
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) != 6 {
		return s
	}
	out := string(digits[0:2]) + " " + string(digits[2:4]) + " " + string(digits[4:6])
	if IsHazardousCode(s) {
		out += "*"
	}
	return out
}

// IsHazardousCode reports the catalogue's asterisk convention.
func IsHazardousCode(code string) bool {
	return strings.Contains(code, "*")
}

// ClampConfidence bounds v to [0, 100]. NaN and infinities are rejected.
func ClampConfidence(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	switch {
	case v < 0:
		return 0, true
	case v > 100:
		return 100, true
	}
	return v, true
}
