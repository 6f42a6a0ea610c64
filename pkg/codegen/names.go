package codegen

import (
	"strings"
	"unicode"
)

// sanitizeName strips characters that cannot appear in an identifier.
func sanitizeName(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) || r == '_' {
			result.WriteRune(r)
		} else if r == ' ' || r == '-' {
			result.WriteRune('_')
		}
	}
	name := result.String()
	if name == "" {
		return ""
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "_" + name
	}
	return name
}

func toPascalCase(s string) string {
	var result strings.Builder
	for _, word := range splitWords(s) {
		result.WriteString(strings.ToUpper(string(word[0])))
		if len(word) > 1 {
			result.WriteString(word[1:])
		}
	}
	return result.String()
}

func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		} else {
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}
