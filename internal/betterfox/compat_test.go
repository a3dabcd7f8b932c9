package betterfox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCompatibility(t *testing.T) {
	tests := []struct {
		name      string
		betterfox string
		firefox   string
		wantBF    uint64
		wantFX    uint64
		wantAhead bool
	}{
		{"same major", "128.0", "128.0.3", 128, 128, false},
		{"betterfox ahead", "130.0", "128.0.3", 130, 128, true},
		{"firefox ahead", "121.0", "128.0", 121, 128, false},
		{"compatibility.ini build suffix", "128", "128.0.3_20240712161037/20240712161037", 128, 128, false},
		{"beta firefox", "130", "129.0b2", 130, 129, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckCompatibility(tt.betterfox, tt.firefox)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBF, got.BetterfoxMajor)
			assert.Equal(t, tt.wantFX, got.FirefoxMajor)
			assert.Equal(t, tt.wantAhead, got.Ahead)
		})
	}
}

func TestCheckCompatibilityInvalid(t *testing.T) {
	_, err := CheckCompatibility("", "128.0")
	assert.Error(t, err)

	_, err = CheckCompatibility("128.0", "n/d")
	assert.Error(t, err)
}
