package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const (
	CustomerTemplate           = "CUST{SEQ6}"
	MaintenanceRequestTemplate = "MR{YYYY}{MM}{SEQ4}"
)

// Format renders a human-readable number from a template, a reference time
// and an allocated sequence value. It has no side effects.
func Format(template string, at time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid sequence: %d", seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", at.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", at.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", at.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", at.Format("02"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in number format: %s", out)
	}
	return out, nil
}
