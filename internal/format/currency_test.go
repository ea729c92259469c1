package format

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_ReferenceValues(t *testing.T) {
	f := New(100000.0, 1.10, TransformNone)

	p, err := f.Format(1.931010, StatusSuccess)
	require.NoError(t, err)

	assert.Equal(t, 1.931010, p.Raw)
	assert.Equal(t, 193101.0, p.EUR)
	assert.Equal(t, 212411.1, p.USD)
	assert.Equal(t, "193,101.00 EUR", p.EURFormatted)
	assert.Equal(t, "212,411.10 USD", p.USDFormatted)
	assert.Equal(t, "🏠 Estimated price: 193,101.00 EUR / 212,411.10 USD\n\nStatus: success", p.MessageText)
	assert.Equal(t, "🏠 <b>Estimated price</b>\n193,101.00 EUR / 212,411.10 USD\n\n✅ <b>Status</b>: success", p.MessageHTML)
}

func TestFormat_Idempotent(t *testing.T) {
	f := New(100000.0, 1.10, TransformNone)

	first, err := f.Format(3.4567, StatusSuccess)
	require.NoError(t, err)
	second, err := f.Format(3.4567, StatusSuccess)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFormat_Transforms(t *testing.T) {
	testCases := []struct {
		name      string
		transform Transform
		raw       float64
		wantEUR   float64
	}{
		{"none", TransformNone, 2.5, 250000},
		{"log", TransformLog, math.Log(150000), 150000},
		{"log1p", TransformLog1p, math.Log1p(99999), 99999},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := New(100000.0, 2.0, tc.transform)
			p, err := f.Format(tc.raw, StatusSuccess)
			require.NoError(t, err)
			assert.InDelta(t, tc.wantEUR, p.EUR, 0.01)
			assert.InDelta(t, tc.wantEUR*2, p.USD, 0.02)
		})
	}
}

func TestFormat_NonFinite(t *testing.T) {
	f := New(100000.0, 1.10, TransformNone)

	for _, raw := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), math.MaxFloat64} {
		_, err := f.Format(raw, StatusSuccess)
		var ferr *FormatError
		require.True(t, errors.As(err, &ferr), "raw %v", raw)
	}

	_, err := New(1, 1, TransformLog).Format(1e6, StatusSuccess)
	var ferr *FormatError
	assert.True(t, errors.As(err, &ferr))
}

func TestAmount(t *testing.T) {
	testCases := []struct {
		v    float64
		want string
	}{
		{0, "0.00 EUR"},
		{999.999, "1,000.00 EUR"},
		{1234567.891, "1,234,567.89 EUR"},
		{-4200.5, "-4,200.50 EUR"},
		{12.3, "12.30 EUR"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, Amount(tc.v, "EUR"))
	}
}

func TestMessageHTML_StatusGlyph(t *testing.T) {
	ok := MessageHTML("1.00 EUR", "1.10 USD", StatusSuccess)
	assert.Contains(t, ok, "✅ <b>Status</b>: success")

	failed := MessageHTML("1.00 EUR", "1.10 USD", "degraded")
	assert.Contains(t, failed, "❌ <b>Status</b>: degraded")
	assert.NotContains(t, failed, "✅")
}

func TestMessageHTML_Escapes(t *testing.T) {
	msg := MessageHTML("<1>", "a&b", "<script>")
	assert.Contains(t, msg, "&lt;1&gt; / a&amp;b")
	assert.Contains(t, msg, "&lt;script&gt;")
}

func TestParseTransform(t *testing.T) {
	for in, want := range map[string]Transform{"": TransformNone, "none": TransformNone, "log": TransformLog, "log1p": TransformLog1p} {
		got, err := ParseTransform(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseTransform("sqrt")
	assert.Error(t, err)
}
