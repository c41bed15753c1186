package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ann@acme.example", Normalize("  Ann@ACME.example "))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"ann@acme.example", true},
		{"ann.lee+jobs@mail.acme.example", true},
		{"", false},
		{"ann", false},
		{"ann@localhost", false},
		{"Ann <ann@acme.example>", false},
		{"ann@acme.", false},
		{"@acme.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid(tt.address))
		})
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "acme.example", Domain("ann@ACME.example"))
	assert.Equal(t, "", Domain("ann@"))
	assert.Equal(t, "", Domain("ann"))
}
