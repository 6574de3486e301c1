package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/panpart/pkg/errors"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"svg", []string{"svg"}},
		{"SVG, png", []string{"svg", "png"}},
		{"pdf,png,svg", []string{"pdf", "png", "svg"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseFormats(tt.in)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	if err := validateFormats([]string{"svg", "pdf", "png"}, false); err != nil {
		t.Errorf("valid formats rejected: %v", err)
	}
	if err := validateFormats([]string{"dot"}, true); err != nil {
		t.Errorf("dot rejected for graphs: %v", err)
	}
	if err := validateFormats([]string{"dot"}, false); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("dot for plots: err = %v, want a configuration error", err)
	}
	if err := validateFormats([]string{"gif"}, true); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("gif: err = %v, want a configuration error", err)
	}
}
