package httpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"pending", "Pending"},
		{"Approved", "Approved"},
		{"élan", "Élan"},
		{"ümlaut kit", "Ümlaut kit"},
		{"3d printer", "3d printer"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleCase(tt.in), tt.in)
	}
}
