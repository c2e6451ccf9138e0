package utils

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	salaryNumber = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(lpa|lakhs?|lacs?|l|k|crores?|cr)?`)
	rangeSep     = regexp.MustCompile(`\s*(?:-|–|—|\bto\b)\s*`)
)

// ParseSalaryLakhs normalises a salary to lakhs per annum. It understands
// plain numbers ("18", "1800000"), suffixed amounts ("500K", "12L", "15 LPA",
// "1.2Cr"), ranges ("₹28L - ₹35L", which use the lower bound) and pay
// periods ("50000/month", "2000 per day", "900/hour").
// Plain numbers below 1000 are taken as lakhs already, larger ones as rupees.
func ParseSalaryLakhs(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	switch {
	case strings.Contains(s, "month") || strings.Contains(s, "/mo"):
		multiplier = 12
	case strings.Contains(s, "/day") || strings.Contains(s, "per day") || strings.Contains(s, "daily"):
		multiplier = 260
	case strings.Contains(s, "hour") || strings.Contains(s, "/hr"):
		multiplier = 2080
	}

	parts := rangeSep.Split(s, -1)
	var first, last []string
	for _, p := range parts {
		m := salaryNumber.FindStringSubmatch(p)
		if m == nil {
			continue
		}
		if first == nil {
			first = m
		}
		last = m
	}
	if first == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(first[1], 64)
	if err != nil {
		return 0, false
	}
	unit := first[2]
	if unit == "" {
		// "20 - 25 LPA" carries its unit on the upper bound only
		unit = last[2]
	}

	switch {
	case unit == "k":
		v /= 100
	case strings.HasPrefix(unit, "cr"):
		v *= 100
	case unit != "":
		// already lakhs
	case v >= 1000:
		v /= 100000
	}
	return v * multiplier, true
}

// FormatLakhs renders a lakhs-per-annum amount the way the job board shows it
func FormatLakhs(v float64) string {
	if v >= 100 {
		return "₹" + trimFloat(v/100) + "Cr"
	}
	return "₹" + trimFloat(v) + "L"
}

// FormatSalary formats a salary for display. Anything that cannot be
// parsed is returned unchanged.
func FormatSalary(salary string) string {
	if salary == "" {
		return salary
	}
	v, ok := ParseSalaryLakhs(salary)
	if !ok {
		return salary
	}
	return FormatLakhs(v)
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// PlainText strips markup from an HTML job description and collapses
// whitespace. Input without markup is returned with whitespace collapsed.
func PlainText(html string) string {
	if !strings.ContainsRune(html, '<') {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// NormalizeForDedup normalizes a string for deduplication comparison
func NormalizeForDedup(s string) string {
	// Convert to lowercase and remove extra whitespace
	s = strings.ToLower(strings.TrimSpace(s))
	// Remove common variations
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// DedupKey is the company + title identity used when importing jobs
func DedupKey(company, title string) string {
	return NormalizeForDedup(company) + "|" + NormalizeForDedup(title)
}

// TruncateString shortens s to length runes, marking the cut with "..."
func TruncateString(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	if length <= 3 {
		return string(r[:length])
	}
	return string(r[:length-3]) + "..."
}
