package ewc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplay_Card(t *testing.T) {
	w := WasteCode{
		Code:        "20 01 27*",
		Description: "Paint, inks, adhesives and resins containing hazardous substances",
		Category:    "Household waste",
		Hazardous:   true,
		Confidence:  ptr(92.0),
	}
	want := "20 01 27*  [HAZARDOUS]\n" +
		"Household waste\n" +
		"Paint, inks, adhesives and resins containing hazardous substances\n" +
		"92% match"
	assert.Equal(t, want, w.Display())
}

func TestDisplay_RoundTrip(t *testing.T) {
	codes := []WasteCode{
		{Code: "20 01 27*", Description: "Paint, inks...", Category: "Household waste", Hazardous: true, Confidence: ptr(92.0)},
		{Code: "20 01 02", Description: "Glass", Category: "Municipal wastes", Hazardous: false},
		{Code: "17 09 04", Description: "Mixed construction\nand demolition wastes", Category: "C&D", Confidence: ptr(12.5)},
		{Code: "15 01 10*", Description: "", Category: "", Hazardous: true, Confidence: ptr(0.0)},
		{Code: "unknown", Description: "50% match", Category: "Other"},
		{Code: "20 01 01", Description: "Mixed paper\n50% match", Category: "Paper"},
		{Code: "20 01 01", Description: "Mixed paper\n50% match", Category: "Paper", Confidence: ptr(70.0)},
		{Code: "20 01 01", Description: "Mixed paper\n\\50% match", Category: "Paper"},
		{Code: "20 01 01", Description: `\ leading backslash`, Category: "Paper", Confidence: ptr(1.0)},
	}
	for _, raw := range codes {
		w := Normalize(raw)
		got, err := ParseDisplay(w.Display())
		require.NoError(t, err, w.Display())
		assert.Equal(t, w, got)
	}
}

func TestDisplay_DescriptionEndingLikeConfidence(t *testing.T) {
	w := Normalize(WasteCode{Code: "20 01 01", Description: "Mixed paper\n50% match", Category: "Paper"})
	assert.Equal(t, "20 01 01  [NON-HAZARDOUS]\nPaper\nMixed paper\n\\50% match", w.Display())

	got, err := ParseDisplay(w.Display())
	require.NoError(t, err)
	assert.Equal(t, "Mixed paper\n50% match", got.Description)
	assert.Nil(t, got.Confidence)
}

func TestParseDisplay_Malformed(t *testing.T) {
	_, err := ParseDisplay("20 01 01")
	assert.ErrorIs(t, err, ErrBadDisplay)

	_, err = ParseDisplay("20 01 01 HAZARDOUS\ncat\ndesc")
	assert.ErrorIs(t, err, ErrBadDisplay)
}
