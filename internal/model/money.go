package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in hundredths of the currency unit (satang for
// THB).  Amounts never pass through binary floating point: they are
// parsed from and rendered to decimal text with exactly two fraction
// digits, which matches the DECIMAL(10,2) columns.
type Money int64

const moneyScale = 100

// maxMoneyDigits bounds the integer part so that parsing cannot overflow
// int64.  It is wider than any column; see MaxStored.
const maxMoneyDigits = 15

// MaxStored is the largest amount a DECIMAL(10,2) column holds.
const MaxStored Money = 99999999_99

var errMoneyFormat = errors.New("invalid amount: expected a decimal with at most two fraction digits")

// ParseMoney parses a decimal string such as "1500", "1500.5" or
// "-12.34".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errMoneyFormat
	}
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || len(whole) > maxMoneyDigits || len(frac) > 2 || (hasDot && frac == "") {
		return 0, errMoneyFormat
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, errMoneyFormat
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errMoneyFormat
	}
	var f int64
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		f, _ = strconv.ParseInt(frac, 10, 64)
	}
	v := w*moneyScale + f
	if neg {
		v = -v
	}
	return Money(v), nil
}

// MustParseMoney is ParseMoney for constants; it panics on bad input.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Mul multiplies the amount by an integer quantity, e.g. nights.
func (m Money) Mul(n int) Money { return m * Money(n) }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// Storable reports whether the amount fits a DECIMAL(10,2) column.
func (m Money) Storable() bool { return m >= -MaxStored && m <= MaxStored }

// String renders the amount with two fraction digits, e.g. "3000.00".
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/moneyScale, v%moneyScale)
}

// MarshalJSON emits a JSON number literal written in decimal, so clients
// receive 3000.00 rather than a float-rounded value.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if strings.ContainsAny(s, "eE") {
		return errMoneyFormat
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Scan implements sql.Scanner.  The MySQL driver returns DECIMAL columns
// as their textual form.
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	case int64:
		*m = Money(v * moneyScale)
		return nil
	}
	return fmt.Errorf("cannot scan %T into Money", src)
}

func (m *Money) scanString(s string) error {
	// DECIMAL(10,2) always has two fraction digits, but tolerate wider
	// scales as long as the extra digits are zero.
	if whole, frac, ok := strings.Cut(s, "."); ok && len(frac) > 2 {
		if strings.Trim(frac[2:], "0") != "" {
			return errMoneyFormat
		}
		s = whole + "." + frac[:2]
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
