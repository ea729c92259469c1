// Package format turns a raw model output into currency values and the chat
// messages shown to users. Everything here is a pure function of its inputs.
package format

import (
	"fmt"
	"html"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Transform names how the raw model output maps to the base currency.
type Transform string

const (
	TransformNone  Transform = "none"  // raw * multiplier
	TransformLog   Transform = "log"   // exp(raw)
	TransformLog1p Transform = "log1p" // expm1(raw)
)

// ParseTransform validates a transform name. Empty means none.
func ParseTransform(s string) (Transform, error) {
	switch Transform(s) {
	case "", TransformNone:
		return TransformNone, nil
	case TransformLog, TransformLog1p:
		return Transform(s), nil
	}
	return "", fmt.Errorf("unknown target transform %q (want none, log or log1p)", s)
}

const (
	BaseCurrency      = "EUR"
	SecondaryCurrency = "USD"

	StatusSuccess = "success"
)

// FormatError reports a raw prediction or derived value that is not finite.
type FormatError struct {
	Value  float64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("Formatting failed: %s (%v)", e.Reason, e.Value)
}

// Prediction is the formatted view of one model output.
type Prediction struct {
	Raw          float64 `json:"prediction"`
	EUR          float64 `json:"prediction_eur"`
	USD          float64 `json:"prediction_usd"`
	EURFormatted string  `json:"prediction_eur_formatted"`
	USDFormatted string  `json:"prediction_usd_formatted"`
	MessageText  string  `json:"message_text"`
	MessageHTML  string  `json:"message_html"`
}

// Formatter converts raw predictions using a fixed multiplier and exchange rate.
type Formatter struct {
	Multiplier   float64
	ExchangeRate float64
	Transform    Transform
}

// New creates a formatter. An empty transform means none.
func New(multiplier, exchangeRate float64, transform Transform) *Formatter {
	if transform == "" {
		transform = TransformNone
	}
	return &Formatter{Multiplier: multiplier, ExchangeRate: exchangeRate, Transform: transform}
}

// Base converts a raw model output into the base currency, unrounded.
func (f *Formatter) Base(raw float64) float64 {
	switch f.Transform {
	case TransformLog:
		return math.Exp(raw)
	case TransformLog1p:
		return math.Expm1(raw)
	default:
		return raw * f.Multiplier
	}
}

// Format computes both currency values and renders the messages for status.
func (f *Formatter) Format(raw float64, status string) (Prediction, error) {
	if !finite(raw) {
		return Prediction{}, &FormatError{Value: raw, Reason: "raw prediction is not a finite number"}
	}

	eur := f.Base(raw)
	usd := round2(eur * f.ExchangeRate)
	eur = round2(eur)
	if !finite(eur) || !finite(usd) {
		return Prediction{}, &FormatError{Value: raw, Reason: "converted price is not a finite number"}
	}

	eurFmt := Amount(eur, BaseCurrency)
	usdFmt := Amount(usd, SecondaryCurrency)

	return Prediction{
		Raw:          raw,
		EUR:          eur,
		USD:          usd,
		EURFormatted: eurFmt,
		USDFormatted: usdFmt,
		MessageText:  MessageText(eurFmt, usdFmt, status),
		MessageHTML:  MessageHTML(eurFmt, usdFmt, status),
	}, nil
}

// Amount renders v with grouped thousands, two decimals and a trailing
// currency code, e.g. "193,101.00 EUR".
func Amount(v float64, code string) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.2f", v) + " " + code
}

// MessageText is the plain text chat reply.
func MessageText(eur, usd, status string) string {
	return fmt.Sprintf("🏠 Estimated price: %s / %s\n\nStatus: %s", eur, usd, status)
}

// MessageHTML is the reply for clients that render Telegram-style HTML.
func MessageHTML(eur, usd, status string) string {
	glyph := "❌"
	if status == StatusSuccess {
		glyph = "✅"
	}
	return fmt.Sprintf("🏠 <b>Estimated price</b>\n%s / %s\n\n%s <b>Status</b>: %s",
		html.EscapeString(eur), html.EscapeString(usd), glyph, html.EscapeString(status))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
