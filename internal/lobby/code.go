package lobby

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	CodeLength = 6

	// codeAlphabet leaves out I, O, 0 and 1, which read alike.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// GenerateCode returns a random join code for a private lobby.
func GenerateCode() (string, error) {
	code, err := gonanoid.Generate(codeAlphabet, CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate lobby code: %w", err)
	}
	return code, nil
}

// ValidCodeFormat reports whether code is six upper-case letters or digits.
func ValidCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}
