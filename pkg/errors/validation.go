package errors

import (
	"strings"
	"unicode"
)

// reservedWords are attribute names used by the graph exporters. An
// organism or family named after one of them would collide with a column.
var reservedWords = map[string]bool{
	"id":               true,
	"label":            true,
	"name":             true,
	"weight":           true,
	"partition":        true,
	"former_partition": true,
	"soft_partition":   true,
	"length":           true,
	"product":          true,
	"nb_genes":         true,
	"nb_genomes":       true,
	"viz":              true,
	"type":             true,
}

// IsReserved reports whether name is a reserved attribute name.
func IsReserved(name string) bool {
	return reservedWords[strings.ToLower(name)]
}

// ValidateIdentifier validates an organism or family identifier.
//
// The validation rules:
//   - No empty names
//   - Maximum length of 256 characters
//   - No whitespace, control characters or quotes
//   - Not a reserved attribute name
func ValidateIdentifier(name string) error {
	if name == "" {
		return New(ErrCodeInvalidIdentifier, "identifier cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidIdentifier, "identifier too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidIdentifier, "identifier %q contains whitespace", name)
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidIdentifier, "identifier %q contains control characters", name)
		}
		if r == '"' || r == '\'' || r == '`' {
			return New(ErrCodeInvalidIdentifier, "identifier %q contains quotes", name)
		}
	}

	if IsReserved(name) {
		return New(ErrCodeInvalidIdentifier, "identifier %q is a reserved word", name)
	}

	return nil
}

// ValidatePath validates an output path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
