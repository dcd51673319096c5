package ewc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	BadgeHazardous    = "[HAZARDOUS]"
	BadgeNonHazardous = "[NON-HAZARDOUS]"

	matchSuffix = "% match"
	escapeMark  = `\`
)

var ErrBadDisplay = errors.New("ewc: malformed display card")

// Display renders the result card:
//
//	20 01 27*  [HAZARDOUS]
//	Household waste
//	Paint, inks, adhesives and resins containing hazardous substances
//	92% match
//
// The last line is present only when a confidence is set. A description whose
// last line ends in "% match" or starts with a backslash gets one more
// backslash in front of that line so it is never read as a confidence.
func (w WasteCode) Display() string {
	var b strings.Builder
	b.WriteString(w.Code)
	b.WriteString("  ")
	if w.Hazardous {
		b.WriteString(BadgeHazardous)
	} else {
		b.WriteString(BadgeNonHazardous)
	}
	b.WriteString("\n")
	b.WriteString(w.Category)
	b.WriteString("\n")
	b.WriteString(escapeLastLine(w.Description))
	if w.Confidence != nil {
		b.WriteString("\n")
		b.WriteString(FormatConfidence(*w.Confidence))
		b.WriteString(matchSuffix)
	}
	return b.String()
}

// FormatConfidence prints the shortest form that parses back to v.
func FormatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseDisplay is the inverse of Display.
func ParseDisplay(s string) (WasteCode, error) {
	lines := strings.Split(s, "\n")
	if len(lines) < 3 {
		return WasteCode{}, fmt.Errorf("%w: want at least 3 lines, got %d", ErrBadDisplay, len(lines))
	}

	var w WasteCode
	header := lines[0]
	switch {
	case strings.HasSuffix(header, "  "+BadgeHazardous):
		w.Code = strings.TrimSuffix(header, "  "+BadgeHazardous)
		w.Hazardous = true
	case strings.HasSuffix(header, "  "+BadgeNonHazardous):
		w.Code = strings.TrimSuffix(header, "  "+BadgeNonHazardous)
	default:
		return WasteCode{}, fmt.Errorf("%w: no hazard badge in %q", ErrBadDisplay, header)
	}
	w.Category = lines[1]

	rest := lines[2:]
	if len(rest) >= 2 {
		last := rest[len(rest)-1]
		if num, ok := strings.CutSuffix(last, matchSuffix); ok {
			if v, err := strconv.ParseFloat(num, 64); err == nil {
				w.Confidence = &v
				rest = rest[:len(rest)-1]
			}
		}
	}
	w.Description = unescapeLastLine(strings.Join(rest, "\n"))
	return w, nil
}

// escapeLastLine prefixes the description's last line with a backslash when
// it could be read as a confidence line or already starts with one.
func escapeLastLine(desc string) string {
	i := strings.LastIndexByte(desc, '\n') + 1
	last := desc[i:]
	if strings.HasSuffix(last, matchSuffix) || strings.HasPrefix(last, escapeMark) {
		return desc[:i] + escapeMark + last
	}
	return desc
}

func unescapeLastLine(desc string) string {
	i := strings.LastIndexByte(desc, '\n') + 1
	if last, ok := strings.CutPrefix(desc[i:], escapeMark); ok {
		return desc[:i] + last
	}
	return desc
}
