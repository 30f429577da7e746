package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cmms/internal/registration"
)

func TestFlattenValue(t *testing.T) {
	tests := []struct {
		name  string
		value registration.Value
		want  []string
	}{
		{
			name:  "string split on commas and newlines",
			value: registration.Value{Kind: registration.ValueString, Str: "Alice Smith, Bob Jones\nCara Lee"},
			want:  []string{"Alice Smith", "Bob Jones", "Cara Lee"},
		},
		{
			name:  "blank segments dropped",
			value: registration.Value{Kind: registration.ValueString, Str: " , Alice ,, "},
			want:  []string{"Alice"},
		},
		{
			name:  "number stringified",
			value: registration.Value{Kind: registration.ValueNumber, Num: 12},
			want:  []string{"12"},
		},
		{
			name:  "bool stringified",
			value: registration.Value{Kind: registration.ValueBool, Bool: true},
			want:  []string{"true"},
		},
		{
			name:  "list entries flattened individually",
			value: registration.Value{Kind: registration.ValueStringList, Strings: []string{"Setup, Cleanup", "Kitchen"}},
			want:  []string{"Setup", "Cleanup", "Kitchen"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenValue(tt.value))
		})
	}
}
