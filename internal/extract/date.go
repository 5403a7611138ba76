package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jiwoo-ai/jiwoo/internal/domain"
)

type datePattern struct {
	re    *regexp.Regexp
	build func(m []string) (int, int, int)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`^(\d{4})\s*[-./]\s*(\d{1,2})\s*[-./]\s*(\d{1,2})`), func(m []string) (int, int, int) {
		return atoi(m[1]), atoi(m[2]), atoi(m[3])
	}},
	{regexp.MustCompile(`^(\d{4})\s*년\s*(\d{1,2})\s*월(?:\s*(\d{1,2})\s*일)?`), func(m []string) (int, int, int) {
		day := 1
		if m[3] != "" {
			day = atoi(m[3])
		}
		return atoi(m[1]), atoi(m[2]), day
	}},
	{regexp.MustCompile(`^(\d{4})\s*년?\s*([1-4])\s*분기`), func(m []string) (int, int, int) {
		return atoi(m[1]), (atoi(m[2])-1)*3 + 1, 1
	}},
	{regexp.MustCompile(`^(\d{4})\s*-?\s*[Qq]([1-4])$`), func(m []string) (int, int, int) {
		return atoi(m[1]), (atoi(m[2])-1)*3 + 1, 1
	}},
	{regexp.MustCompile(`^(\d{4})\s*[-./]\s*(\d{1,2})$`), func(m []string) (int, int, int) {
		return atoi(m[1]), atoi(m[2]), 1
	}},
	{regexp.MustCompile(`^(\d{4})\s*(?:년|년도)?$`), func(m []string) (int, int, int) {
		return atoi(m[1]), 1, 1
	}},
}

// ParseDate recognises year, year-month, full-date and quarter forms in
// numeric and Korean notation. It returns nil for anything else.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		y, mo, d := p.build(m)
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return nil
		}
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Month() != time.Month(mo) {
			return nil
		}
		return &t
	}
	return nil
}

// SortByDate orders points ascending by date when every point has one and
// leaves the order untouched otherwise.
func SortByDate(points []domain.ExtractedDataPoint) {
	for _, p := range points {
		if p.Date == nil {
			return
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(*points[j].Date)
	})
}
