package reader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp("2021.01.19 12:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 19, 12, 0, 0, 0, time.UTC), ts)

	// Lolly sometimes writes the time separator as a dot.
	ts, err = parseTimestamp("2021.01.19 12.15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 19, 12, 15, 0, 0, time.UTC), ts)

	// Optional seconds.
	ts, err = parseTimestamp("2021.12.31 23:59:58")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 12, 31, 23, 59, 58, 0, time.UTC), ts)
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"2021.01.19",
		"2021-01-19 12:00",
		"2021.01.19T12:00",
		"2021.13.19 12:00",
		"2021.01.32 12:00",
		"2021.01.19 25:00",
		"2021.01.19 12:61",
		"2021.01.19 12:00x",
		"abcd.ef.gh ij:kl",
	}
	for _, c := range cases {
		_, err := parseTimestamp(c)
		assert.Error(t, err, "input %q", c)
	}
}
