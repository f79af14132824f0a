package common

import "testing"

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name        string
		format      string
		supported   []string
		expectError bool
	}{
		{"valid json", "json", supported, false},
		{"valid text", "text", supported, false},
		{"valid markdown", "markdown", supported, false},
		{"unsupported format", "yaml", supported, true},
		{"empty format", "", supported, true},
		{"no restrictions configured", "anything", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.expectError && err == nil {
				t.Errorf("expected error for format %q", tt.format)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error for format %q: %v", tt.format, err)
			}
		})
	}
}

func TestValidateQuestionCount(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		max         int
		expectError bool
	}{
		{"minimum", 1, 20, false},
		{"maximum", 20, 20, false},
		{"typical", 5, 20, false},
		{"zero", 0, 20, true},
		{"negative", -3, 20, true},
		{"over the bound", 21, 20, true},
		{"custom bound respected", 11, 10, true},
		{"custom bound allows", 10, 10, false},
		{"unset bound defaults to 20", 20, 0, false},
		{"unset bound still caps", 21, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestionCount(tt.count, tt.max)
			if tt.expectError && err == nil {
				t.Errorf("expected error for count %d (max %d)", tt.count, tt.max)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error for count %d (max %d): %v", tt.count, tt.max, err)
			}
		})
	}
}
