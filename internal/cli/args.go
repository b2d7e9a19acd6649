package cli

import (
	"fmt"
	"strings"
)

// splitQuoted splits a command line into tokens, honoring single and
// double quotes.
func splitQuoted(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	var quote rune
	inToken := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// parseArgs turns "--key value" tokens into a map. A key without a
// following value becomes a boolean flag ("true").
func parseArgs(tokens []string) map[string]string {
	args := make(map[string]string)
	for i := 0; i < len(tokens); i++ {
		if !strings.HasPrefix(tokens[i], "--") {
			continue
		}
		key := strings.TrimPrefix(tokens[i], "--")
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
			args[key] = tokens[i+1]
			i++
		} else {
			args[key] = "true"
		}
	}
	return args
}
