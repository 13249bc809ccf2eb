package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNumber(t *testing.T) {
	f := New(language.Korean, time.UTC)
	assert.Equal(t, "0", f.Number(0))
	assert.Equal(t, "59,000", f.Number(59000))
	assert.Equal(t, "-1,234,567", f.Number(-1234567))
	assert.Equal(t, "59,000원", f.Won(59000))
	assert.Equal(t, "15%", f.Percent(15))
}

func TestDates(t *testing.T) {
	f := New(language.Korean, time.UTC)
	today := time.Date(2025, 3, 31, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-03-31", f.Date(today))
	assert.Equal(t, "2025-03-03", f.Date(f.MonthAgo(today)))

	parsed, err := f.ParseDate(" 2025-02-28 ")
	require.NoError(t, err)
	assert.Equal(t, 28, parsed.Day())

	_, err = f.ParseDate("28/02/2025")
	assert.Error(t, err)

	next, err := f.NextDay("2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", next)
}
