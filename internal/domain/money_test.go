package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCents_String(t *testing.T) {
	tests := []struct {
		amount Cents
		want   string
	}{
		{0, "$0.00"},
		{25, "$0.25"},
		{125, "$1.25"},
		{1000, "$10.00"},
		{-50, "-$0.50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.amount.String())
	}
}
