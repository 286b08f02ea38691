package repository

import (
	"fmt"
	"strings"
	"time"
)

const canonicalDate = "2006-01-02"

// Accepted input layouts, tried in order. Two-digit years follow the
// standard pivot: 00-68 become 20xx, 69-99 become 19xx.
var dateLayouts = []string{canonicalDate, "01/02/2006", "01/02/06"}

// NormalizeDate converts an input date to canonical YYYY-MM-DD. Accepted
// shapes are YYYY-MM-DD, MM/DD/YYYY and MM/DD/YY. Validity is checked by
// calendar round-trip: the parsed time must re-format to the exact input,
// which rejects impossible dates (02/30) as well as unpadded fields.
func NormalizeDate(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty date", ErrInvalidInput)
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if t.Format(layout) != trimmed {
			continue
		}
		return t.Format(canonicalDate), nil
	}
	return "", fmt.Errorf("%w: unrecognized date %q", ErrInvalidInput, s)
}

// NormalizeOptionalDate is NormalizeDate for fields where empty means unset.
func NormalizeOptionalDate(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return NormalizeDate(s)
}

// NormalizeMonth validates a YYYY-MM month key.
func NormalizeMonth(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	t, err := time.Parse("2006-01", trimmed)
	if err != nil || t.Format("2006-01") != trimmed {
		return "", fmt.Errorf("%w: unrecognized month %q", ErrInvalidInput, s)
	}
	return trimmed, nil
}
