package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlacementRestore(t *testing.T) {
	tests := []struct {
		name string
		in   placement
		want placement
	}{
		{"saved window", placement{100, 50, 800, 600}, placement{100, 50, 800, 600}},
		{"configured size only", placement{w: 640, h: 480}, placement{64, 64, 640, 480}},
		{"nothing known", placement{}, placement{64, 64, 1280, 720}},
		{"bad size keeps position", placement{10, 20, 0, 300}, placement{10, 20, 1280, 720}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.restore())
		})
	}
}
