package results

import (
	"math"
	"strconv"
	"strings"

	"school-results-db/internal/model"
)

// ParseMark reads a subject cell. Blank, "-", "NA" and "N/A" mean the
// subject was not offered; anything else counts, defaulting to zero marks
// when the text is not a number.
func ParseMark(v any) (marks float64, offered bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(val), true
	case float32:
		return finite(float64(val)), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "-" || strings.EqualFold(s, "na") || strings.EqualFold(s, "n/a") {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, true
		}
		return finite(n), true
	default:
		return 0, false
	}
}

// DeriveGrade maps a percentage onto the school's grade bands. Each band
// includes its lower bound.
func DeriveGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	case percentage >= 33:
		return "E"
	default:
		return "F"
	}
}

func DeriveStatus(percentage float64) string {
	if percentage >= 33 {
		return model.StatusPass
	}
	return model.StatusFail
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// cellText renders a decoded cell as trimmed text. Whole numbers lose their
// decimal point so a numeric roll number 102 reads "102".
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// cellNumber parses a fixed numeric column. A trailing percent sign is
// accepted.
func cellNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return finite(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return finite(n), true
	default:
		return 0, false
	}
}

// nonZeroOr returns the cell's number when it parses to something other
// than zero, otherwise fallback.
func nonZeroOr(v any, fallback float64) float64 {
	if n, ok := cellNumber(v); ok && n != 0 {
		return n
	}
	return fallback
}
