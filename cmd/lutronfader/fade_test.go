package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFade(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"1800", 1800},
		{"30m", 1800},
		{"1h30m", 5400},
		{"90s", 90},
		{"30:00", 1800},
		{"1:30:00", 5400},
		{"0:05", 5},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFade(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFade_Invalid(t *testing.T) {
	for _, in := range []string{"", "-5", "-1m", "soon", "1:60", "1:2:3:4", "a:00"} {
		_, err := parseFade(in)
		assert.Error(t, err, in)
	}
}

func TestFadeValue(t *testing.T) {
	v := newFadeValue(1800)
	assert.Equal(t, "1800", v.String())
	assert.Equal(t, "fade", v.Type())

	require.NoError(t, v.Set("2m"))
	assert.Equal(t, 120, v.Seconds())

	assert.Error(t, v.Set("later"))
	assert.Equal(t, 120, v.Seconds())
}
