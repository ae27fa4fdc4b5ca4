package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders catalog price text in the store currency.
type MoneyFormatter struct {
	tag         language.Tag
	symbol      string
	symbolAfter bool
	scale       int
}

// NewMoneyFormatter builds a formatter for an ISO 4217 currency code. An empty
// symbol falls back to the code itself.
func NewMoneyFormatter(code, symbol, locale string, symbolAfter bool) (*MoneyFormatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("report: invalid currency code %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("report: invalid locale %q: %w", locale, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	if symbol == "" {
		symbol = unit.String()
	}
	return &MoneyFormatter{tag: tag, symbol: symbol, symbolAfter: symbolAfter, scale: scale}, nil
}

// Format renders raw. Empty input yields "", text that is not a number is
// returned unchanged.
func (m *MoneyFormatter) Format(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}

	sign := ""
	if d.Round(int32(m.scale)).IsNegative() {
		sign = "-"
	}
	amount := m.amount(d.Abs())
	if m.symbolAfter {
		return sign + amount + " " + m.symbol
	}
	return sign + m.symbol + amount
}

// amount renders a non-negative d with the locale's digit grouping and
// decimal separator. Digits come from the decimal itself, never a float.
func (m *MoneyFormatter) amount(d decimal.Decimal) string {
	fixed := d.StringFixed(int32(m.scale))
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return fixed
	}

	// Printers are cheap and not safe for concurrent use, so one per call.
	p := message.NewPrinter(m.tag)
	out := p.Sprint(number.Decimal(n))
	if frac != "" {
		out += decimalSeparator(p) + frac
	}
	return out
}

func decimalSeparator(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
}
