package extract

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
	"github.com/jiwoo-ai/jiwoo/internal/metrics"
)

type role int

const (
	roleNone role = iota
	roleEntity
	roleField
	roleValue
	roleUnit
	roleDate
)

var keyRoles = map[string]role{
	"기업": roleEntity, "회사": roleEntity, "항목": roleEntity, "이름": roleEntity,
	"entity": roleEntity, "name": roleEntity, "company": roleEntity,

	"분야": roleField, "지표": roleField, "항목명": roleField,
	"field": roleField, "metric": roleField,

	"수치": roleValue, "값": roleValue, "value": roleValue,

	"단위": roleUnit, "unit": roleUnit,

	"날짜": roleDate, "연도": roleDate, "기간": roleDate, "시점": roleDate,
	"date": roleDate, "year": roleDate,
}

var (
	valuePattern = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)\s*(.*)$`)
	bulletPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]\s+|[-*•]\s*)`)
)

// ParseRecords reads lines of the form
// "기업: X, 분야: Y, 수치: 12.5억원, 날짜: 2023" and returns one point per
// line that carries a parseable value. Other lines are dropped.
func ParseRecords(text string) []domain.ExtractedDataPoint {
	var points []domain.ExtractedDataPoint
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(bulletPrefix.ReplaceAllString(raw, ""))
		if line == "" {
			continue
		}

		p, ok := parseLine(line)
		if !ok {
			metrics.ExtractionDroppedLinesTotal.Inc()
			slog.Debug("extract: dropping line without value", "line", line)
			continue
		}
		points = append(points, Normalize(p))
	}
	return points
}

func parseLine(line string) (domain.ExtractedDataPoint, bool) {
	fields := map[role]string{}
	for _, part := range strings.Split(line, ", ") {
		key, val, ok := splitKV(part)
		if !ok {
			continue
		}
		r := keyRoles[strings.ToLower(key)]
		if r == roleNone {
			continue
		}
		if _, seen := fields[r]; !seen {
			fields[r] = val
		}
	}

	rawValue, ok := fields[roleValue]
	if !ok {
		return domain.ExtractedDataPoint{}, false
	}
	value, unit, ok := parseValue(rawValue)
	if !ok {
		return domain.ExtractedDataPoint{}, false
	}
	if unit == "" {
		unit = fields[roleUnit]
	}

	p := domain.ExtractedDataPoint{
		Name:  fields[roleEntity],
		Value: value,
		Unit:  unit,
		Field: fields[roleField],
	}
	if d, ok := fields[roleDate]; ok {
		p.Date = ParseDate(d)
		if p.Name == "" {
			p.Name = d
		}
	}
	if p.Name == "" {
		p.Name = p.Field
	}
	return p, true
}

func splitKV(part string) (string, string, bool) {
	part = strings.ReplaceAll(part, "：", ":")
	i := strings.Index(part, ":")
	if i < 0 {
		return "", "", false
	}
	key := strings.Trim(strings.TrimSpace(part[:i]), "*")
	val := strings.Trim(strings.TrimSpace(part[i+1:]), "*")
	if key == "" || val == "" {
		return "", "", false
	}
	return key, val, true
}

func parseValue(raw string) (float64, string, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	m := valuePattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return v, strings.TrimSpace(m[2]), true
}

// Normalize converts percentages to fractions and trillion amounts to
// hundred-million units. Other units are left untouched.
func Normalize(p domain.ExtractedDataPoint) domain.ExtractedDataPoint {
	unit := strings.TrimSpace(p.Unit)
	lower := strings.ToLower(unit)

	switch {
	case unit == "%" || unit == "퍼센트" || lower == "percent" || lower == "pct":
		p.Value /= 100
		p.Unit = "%"
	case unit == "조" || unit == "조원" || strings.HasPrefix(unit, "조 "):
		p.Value *= 10000
		p.Unit = "억" + strings.TrimPrefix(unit, "조")
	case lower == "trillion" || strings.HasPrefix(lower, "trillion "):
		p.Value *= 10000
		p.Unit = "hundred million" + unit[len("trillion"):]
	}
	return p
}
