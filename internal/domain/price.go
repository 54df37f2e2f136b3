package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxPrice is the largest value a NUMERIC(10,2) column holds, in cents.
const MaxPrice Price = 99_999_999_99

var ErrInvalidPrice = errors.New("price must be a non-negative amount with at most two decimals")

// Price is a monetary amount in cents.
type Price int64

// ParsePrice parses a decimal string such as "12", "12.5" or "12.50".
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidPrice
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 || (hasFrac && frac == "") {
		return 0, ErrInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}

	if units > int64(MaxPrice/100) {
		return 0, fmt.Errorf("%w: exceeds %s", ErrInvalidPrice, MaxPrice)
	}
	return Price(units*100 + cents), nil
}

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// MarshalJSON encodes the price as a decimal string to avoid float rounding.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value stores the price as a NUMERIC literal.
func (p Price) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan reads NUMERIC values, which drivers return as text.
func (p *Price) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = 0
		return nil
	case []byte:
		return p.scanString(string(v))
	case string:
		return p.scanString(v)
	case int64:
		*p = Price(v * 100)
		return nil
	case float64:
		*p = Price(v*100 + 0.5)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Price", src)
	}
}

func (p *Price) scanString(s string) error {
	parsed, err := ParsePrice(s)
	if err != nil {
		return fmt.Errorf("scan price %q: %w", s, err)
	}
	*p = parsed
	return nil
}
