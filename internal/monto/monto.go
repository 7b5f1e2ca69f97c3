// Package monto parses the monetary amounts sent by the front desk.
//
// Amounts arrive either as JSON numbers or as locale-formatted strings
// ("1.234,56", "$ 100,50"). Everything is converted to an exact decimal with
// two places before any arithmetic happens.
package monto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the scale every stored amount is rounded to.
const Places = 2

var ErrFormato = errors.New("formato de monto inválido")

// Parse reads a locale-formatted amount. "." is the thousands separator and
// "," the decimal separator. A string without "," whose last "." group is not
// three digits long is read with "." as the decimal point ("150.50").
func Parse(s string) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	clean = strings.TrimSuffix(strings.TrimSuffix(clean, "MXN"), "mxn")

	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrFormato, s)
	}

	neg := false
	if strings.HasPrefix(clean, "-") {
		neg = true
		clean = clean[1:]
	}

	var intPart, fracPart string
	switch strings.Count(clean, ",") {
	case 0:
		intPart, fracPart = splitWithoutComma(clean)
	case 1:
		idx := strings.Index(clean, ",")
		intPart, fracPart = clean[:idx], clean[idx+1:]
		if fracPart == "" || strings.Contains(fracPart, ".") {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrFormato, s)
		}
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrFormato, s)
	}

	digits, ok := ungroup(intPart)
	if !ok || !allDigits(fracPart) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrFormato, s)
	}

	literal := digits
	if fracPart != "" {
		literal += "." + fracPart
	}
	if neg {
		literal = "-" + literal
	}
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrFormato, s)
	}
	return d.Round(Places), nil
}

// splitWithoutComma decides whether a lone "." is a thousands separator.
func splitWithoutComma(s string) (string, string) {
	groups := strings.Split(s, ".")
	if len(groups) == 2 && len(groups[1]) >= 1 && len(groups[1]) <= 2 {
		return groups[0], groups[1]
	}
	return s, ""
}

// ungroup strips "." thousands separators, checking that every group after
// the first has exactly three digits.
func ungroup(s string) (string, bool) {
	groups := strings.Split(s, ".")
	if groups[0] == "" || len(groups[0]) > 3 && len(groups) > 1 {
		return "", false
	}
	for i, g := range groups {
		if !allDigits(g) || g == "" {
			return "", false
		}
		if i > 0 && len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Monto is a decimal that accepts both JSON numbers and locale strings.
// It always marshals back as a JSON number.
type Monto struct {
	decimal.Decimal
}

func New(d decimal.Decimal) Monto { return Monto{Decimal: d.Round(Places)} }

func (m *Monto) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d, err := Parse(s)
		if err != nil {
			return err
		}
		m.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFormato, data)
	}
	m.Decimal = d.Round(Places)
	return nil
}

func (m Monto) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.StringFixed(Places)), nil
}
