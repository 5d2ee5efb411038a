package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scaleBounds struct {
	MinScale float64 `validate:"gt=0"`
	MaxScale float64 `validate:"gtfield=MinScale"`
	Mode     string  `validate:"omitempty,oneof=direct barnes-hut"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   scaleBounds
		wantErr string
	}{
		{name: "valid", input: scaleBounds{MinScale: 0.1, MaxScale: 8}},
		{name: "zero min", input: scaleBounds{MinScale: 0, MaxScale: 8}, wantErr: "minScale must be greater than 0"},
		{name: "inverted bounds", input: scaleBounds{MinScale: 4, MaxScale: 2}, wantErr: "maxScale must be greater than minScale"},
		{name: "unknown mode", input: scaleBounds{MinScale: 1, MaxScale: 2, Mode: "grid"}, wantErr: "mode must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
