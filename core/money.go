package core

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var errInvalidMoney = errors.New("amount must be a decimal with at most 2 fraction digits")

// Money is an amount in cents. Stored values are exact; rounding only happens on display.
type Money int64

func MoneyFromCents(cents int64) Money { return Money(cents) }

// ParseMoney parses a decimal such as "1500", "1500.5" or "-12.05".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidMoney
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" || len(fracPart) > 2 || !isDigits(intPart) || !isDigits(fracPart) {
		return 0, errInvalidMoney
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	frac, _ := strconv.ParseInt(fracPart, 10, 64)
	whole, err := strconv.ParseInt(intPart, 10, 64)
	// whole*100+frac must fit in an int64
	if err != nil || whole > (math.MaxInt64-frac)/100 {
		return 0, errInvalidMoney
	}
	cents := whole*100 + frac
	if neg {
		cents = -cents
	}
	return Money(cents), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (m Money) Cents() int64 { return int64(m) }

// String formats m with exactly two decimals, e.g. "1500.00".
func (m Money) String() string {
	cents := int64(m)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + twoDigits(cents%100)
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// Display formats m for humans in the given locale, e.g. "1,500.00" for "en".
func (m Money) Display(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return p.Sprintf("%.2f", float64(m)/100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if string(data) == "null" {
		return nil
	}
	v, err := ParseMoney(string(data))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
