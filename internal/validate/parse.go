package validate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnparseable is returned when a cell matches no supported format.
var ErrUnparseable = errors.New("unparseable value")

// DateLayouts are tried in order. Month-first, as exported by US POS systems.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/06",
	"1-2-2006",
	"1-2-06",
	"1.2.2006",
	"2006/1/2",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
}

var amountStripper = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "", "\u00a0", "")

// ParseAmount parses a currency cell such as "$1,234.50". Sign is preserved.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := amountStripper.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrUnparseable, s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrUnparseable, s)
	}
	return d, nil
}

// ParseDate parses a date cell against DateLayouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrUnparseable, s)
}
