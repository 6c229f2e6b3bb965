package wizard

import (
	"regexp"
	"strings"
	"time"

	"github.com/sheeehy/lena/pkg/day"
)

// DateLayout is the user-facing date format.
const DateLayout = "02 01 2006"

var datePattern = regexp.MustCompile(`^\d{2}\s\d{2}\s\d{4}$`)

// ParseDate parses a DD MM YYYY string into a UTC midnight date. Impossible
// calendar dates such as 31 02 2023 are rejected.
func ParseDate(input string) (time.Time, error) {
	if !datePattern.MatchString(input) {
		return time.Time{}, &FormatError{Input: input}
	}
	normalized := strings.Join(strings.Fields(input), " ")
	t, err := time.ParseInLocation(DateLayout, normalized, time.UTC)
	if err != nil {
		return time.Time{}, &FormatError{Input: input}
	}
	return t, nil
}

// FormatDate renders t as DD MM YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MaskDate keeps the first eight digits of input and lays them out as
// DD MM YYYY, so partial input reads "01", "01 06", "01 06 20".
func MaskDate(input string) string {
	digits := make([]byte, 0, 8)
	for i := 0; i < len(input) && len(digits) < 8; i++ {
		if c := input[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}

	var b strings.Builder
	for i, c := range digits {
		if i == 2 || i == 4 {
			b.WriteByte(' ')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// CheckBounds compares calendar days only. A zero birth leaves the lower
// bound open.
func CheckBounds(date, birth, today time.Time) error {
	key := day.Key(date)
	if !birth.IsZero() && key < day.Key(birth) {
		return &RangeError{Date: key, Reason: BeforeBirth}
	}
	if key > day.Key(today) {
		return &RangeError{Date: key, Reason: InFuture}
	}
	return nil
}

// CheckCapacity fails when the day already holds the maximum number of
// memories.
func CheckCapacity(key string, counter DayCounter) error {
	if counter == nil {
		return nil
	}
	if n := counter.MemoryCount(key); n >= day.MaxMemoriesPerDay {
		return &CapacityError{Date: key, Count: n}
	}
	return nil
}

// CheckRequired fails when value is blank after trimming.
func CheckRequired(step Step, value string) error {
	if strings.TrimSpace(value) == "" {
		return &RequiredError{Step: step}
	}
	return nil
}
