package usecase

import (
	"strings"
	"time"

	"github.com/emontoro/finance-ai-assistant/internal/core/domain"
)

// relativePhrase maps a fixed query phrase to a calendar window anchored on
// the evaluation instant. The table is scanned in order and the first hit
// wins, so longer phrases must precede any prefix they contain.
type relativePhrase struct {
	phrase  string
	resolve func(now time.Time) domain.DateRange
}

var relativePhrases = []relativePhrase{
	{"last month", previousMonth},
	{"último mes", previousMonth},
	{"ultimo mes", previousMonth},
	{"mes pasado", previousMonth},
	{"this month", currentMonth},
	{"este mes", currentMonth},
	{"mes actual", currentMonth},
	{"last year", previousYear},
	{"año pasado", previousYear},
	{"ano pasado", previousYear},
	{"this year", currentYear},
	{"este año", currentYear},
	{"este ano", currentYear},
	{"año actual", currentYear},
}

// monthVocabulary holds English and Spanish month names in calendar order.
// Bare month names resolve against the current year unless the query also
// carries an explicit plausible year.
var monthVocabulary = []struct {
	name  string
	month time.Month
}{
	{"january", time.January},
	{"enero", time.January},
	{"february", time.February},
	{"febrero", time.February},
	{"march", time.March},
	{"marzo", time.March},
	{"april", time.April},
	{"abril", time.April},
	{"may", time.May},
	{"mayo", time.May},
	{"june", time.June},
	{"junio", time.June},
	{"july", time.July},
	{"julio", time.July},
	{"august", time.August},
	{"agosto", time.August},
	{"september", time.September},
	{"septiembre", time.September},
	{"october", time.October},
	{"octubre", time.October},
	{"november", time.November},
	{"noviembre", time.November},
	{"december", time.December},
	{"diciembre", time.December},
}

// yearDriftLimit bounds how far an explicit four digit number may sit from
// the current year before it stops being treated as a year.
const yearDriftLimit = 3

// resolveDateRange turns a natural language temporal expression into an
// inclusive calendar window. It reports false when the text carries no
// recognized expression; callers must not fall back to a default window.
func resolveDateRange(text string, now time.Time) (domain.DateRange, bool) {
	lower := strings.ToLower(text)

	for _, p := range relativePhrases {
		if strings.Contains(lower, p.phrase) {
			return p.resolve(now), true
		}
	}

	for _, m := range monthVocabulary {
		if !containsToken(lower, m.name) {
			continue
		}
		year := now.Year()
		if explicit, ok := explicitYear(lower, now); ok {
			year = explicit
		}
		return monthRange(year, m.month), true
	}

	if year, ok := explicitYear(lower, now); ok {
		return yearRange(year), true
	}

	return domain.DateRange{}, false
}

// explicitYear scans for a standalone four digit number within the
// plausibility window around the current year.
func explicitYear(lower string, now time.Time) (int, bool) {
	for i := 0; i+4 <= len(lower); i++ {
		if i > 0 && isDigit(lower[i-1]) {
			continue
		}
		if i+4 < len(lower) && isDigit(lower[i+4]) {
			continue
		}
		candidate := 0
		valid := true
		for j := i; j < i+4; j++ {
			if !isDigit(lower[j]) {
				valid = false
				break
			}
			candidate = candidate*10 + int(lower[j]-'0')
		}
		if !valid {
			continue
		}
		drift := candidate - now.Year()
		if drift < -yearDriftLimit || drift > yearDriftLimit {
			continue
		}
		return candidate, true
	}
	return 0, false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// containsToken reports whether word occurs in lower bounded by non-letter
// characters, so "march" does not fire inside "marching" and "rent" does
// not fire inside "current".
func containsToken(lower, word string) bool {
	for start := 0; ; {
		idx := strings.Index(lower[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !isLetter(lower[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(lower) || !isLetter(lower[afterIdx])
		if before && after {
			return true
		}
		start = idx + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

// monthRange spans the first through the last day of a calendar month.
// Day zero of the following month normalizes to the last day, which keeps
// February correct in leap years.
func monthRange(year int, month time.Month) domain.DateRange {
	return domain.DateRange{
		Start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC),
	}
}

func yearRange(year int) domain.DateRange {
	return domain.DateRange{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

func currentMonth(now time.Time) domain.DateRange {
	return monthRange(now.Year(), now.Month())
}

func previousMonth(now time.Time) domain.DateRange {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := firstOfCurrent.AddDate(0, -1, 0)
	return monthRange(prev.Year(), prev.Month())
}

func currentYear(now time.Time) domain.DateRange {
	return yearRange(now.Year())
}

func previousYear(now time.Time) domain.DateRange {
	return yearRange(now.Year() - 1)
}
