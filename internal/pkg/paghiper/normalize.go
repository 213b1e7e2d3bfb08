package paghiper

import (
	"strings"
	"time"
)

// OnlyDigits strips every non-digit from s. Used for CPF/CNPJ and phone numbers.
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var processorLocation = loadProcessorLocation()

func loadProcessorLocation() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

var processorTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses the date formats PagHiper uses. Values without a zone
// are interpreted in Brasilia time.
func ParseTime(raw string) (time.Time, bool) {
	v := strings.TrimSpace(raw)
	if v == "" || v == "0000-00-00" || v == "0000-00-00 00:00:00" {
		return time.Time{}, false
	}
	for _, layout := range processorTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, processorLocation); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
