package errors

import (
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "GCF_000005845", false},
		{"valid with dash", "E-coli-K12", false},
		{"valid with dot", "strain.1", false},
		{"valid with slash", "clade/strain", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"space", "E coli", true},
		{"tab", "E\tcoli", true},
		{"newline", "foo\nbar", true},
		{"double quote", `foo"bar`, true},
		{"single quote", "foo'bar", true},
		{"control char", "foo\x01bar", true},
		{"reserved", "partition", true},
		{"reserved upper", "Weight", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidIdentifier) {
				t.Errorf("ValidateIdentifier(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidIdentifier)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "out/partitions", false},
		{"absolute", "/tmp/panpart", false},

		{"empty", "", true},
		{"null byte", "out\x00dir", true},
		{"control", "out\x07dir", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
