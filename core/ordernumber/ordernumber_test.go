package ordernumber_test

import (
	"errors"
	"strings"
	"testing"

	"glass-tracker/core/ordernumber"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		base      string
		suffix    string
		full      string
		canonical string
	}{
		{"Plain", "54222", "54222", "", "54222", "54222"},
		{"Hyphen suffix", "54222-a", "54222", "a", "54222-a", "54222-a"},
		{"Space suffix", "54222 xxx", "54222", "xxx", "54222 xxx", "54222-xxx"},
		{"No separator", "54222a", "54222", "a", "54222a", "54222-a"},
		{"Upper suffix", "54222-A", "54222", "A", "54222-A", "54222-a"},
		{"Numeric suffix", "54222-12", "54222", "12", "54222-12", "54222-12"},
		{"Four char suffix", "1-ab12", "1", "ab12", "1-ab12", "1-ab12"},
		{"Surrounding whitespace", "  53714 \t", "53714", "", "53714", "53714"},
		{"Twenty digits", strings.Repeat("9", 20), strings.Repeat("9", 20), "", strings.Repeat("9", 20), strings.Repeat("9", 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ordernumber.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.base, p.Base)
			assert.Equal(t, tt.suffix, p.Suffix)
			assert.Equal(t, tt.full, p.Full)
			assert.Equal(t, tt.canonical, p.Canonical())
			assert.Equal(t, tt.suffix != "", p.HasSuffix())
		})
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"Empty", "", ordernumber.ReasonEmpty},
		{"Whitespace only", "   ", ordernumber.ReasonEmpty},
		{"Too long", strings.Repeat("1", 21), ordernumber.ReasonTooLong},
		{"Too long with suffix", "1234567890123456-abcd", ordernumber.ReasonTooLong},
		{"Letters first", "a54222", ordernumber.ReasonMalformed},
		{"Suffix too long", "54222-abcde", ordernumber.ReasonMalformed},
		{"Double separator", "54222--a", ordernumber.ReasonMalformed},
		{"Trailing separator", "54222-", ordernumber.ReasonMalformed},
		{"Inner garbage", "54222/a", ordernumber.ReasonMalformed},
		{"Two suffixes", "54222-a-b", ordernumber.ReasonMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ordernumber.Parse(tt.input)
			require.Error(t, err)

			var perr *ordernumber.ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.reason, perr.Reason)
			assert.Equal(t, tt.input, perr.Input)
		})
	}
}

func TestCanonicalOf(t *testing.T) {
	assert.Equal(t, "54222-a", ordernumber.CanonicalOf("54222 A"))
	assert.Equal(t, "", ordernumber.CanonicalOf("not-a-number"))
}
