package advance

import (
	"fmt"
	"regexp"
	"time"
)

// Period is the numbering scope of t: its UTC year and month.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// FormatNumber renders <prefix><YYYY><MM><NNNN>.
func FormatNumber(prefix string, t time.Time, sequence int) string {
	return fmt.Sprintf("%s%s%04d", prefix, t.UTC().Format("200601"), sequence)
}

// NumberPattern matches request numbers issued under prefix.
func NumberPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\d{4}(0[1-9]|1[0-2])\d{4}$`)
}

// MaxSequence is the largest counter a four-digit suffix can hold.
const MaxSequence = 9999
