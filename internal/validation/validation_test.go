package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string   `yaml:"name" validate:"required"`
	Fields []string `yaml:"fields" validate:"unique"`
	Level  string   `yaml:"level" validate:"omitempty,oneof=debug info"`
}

func TestValidator_Struct(t *testing.T) {
	v, err := New("yaml")
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   sample
		wantErr []string
	}{
		{
			name:  "valid",
			input: sample{Name: "deck", Fields: []string{"a", "b"}, Level: "info"},
		},
		{
			name:    "missing name",
			input:   sample{},
			wantErr: []string{"name is a required field"},
		},
		{
			name:    "several failures",
			input:   sample{Fields: []string{"a", "a"}, Level: "trace"},
			wantErr: []string{"name is a required field", "fields", "level must be one of [debug info]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
