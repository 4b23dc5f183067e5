package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultParsers returns the sed-style regex parser followed by the
// "phrase => replacement" literal parser.
func DefaultParsers() []Parser {
	return []Parser{regexParser{}, literalParser{}}
}

type literalParser struct{}

func (literalParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (literalParser) Parse(line string) (Rule, error) {
	return parseLiteral(line)
}

// literal rules match case-insensitively.
type literalRule struct {
	pattern     *regexp.Regexp
	replacement string
}

func parseLiteral(line string) (Rule, error) {
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("invalid literal rule")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}

	pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}
	return literalRule{pattern: pattern, replacement: strings.TrimSpace(to)}, nil
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.pattern.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

type regexParser struct{}

// CanParse accepts s<delim>pattern<delim>replacement<delim>flags where delim
// is any punctuation character.
func (regexParser) CanParse(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isWordOrSpace(line[1])
}

func (regexParser) Parse(line string) (Rule, error) {
	return parseRegex(line)
}

type regexRule struct {
	pattern     *regexp.Regexp
	replacement string
	global      bool
}

func parseRegex(line string) (Rule, error) {
	if len(line) < 2 {
		return nil, errors.New("invalid regex rule")
	}
	delim := line[1]
	if isWordOrSpace(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	source, next, err := readDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, next, err := readDelimited(line, next, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	// Case-insensitive unless the pattern says otherwise; dictated text has
	// unpredictable capitalisation.
	inline := "i"
	global := false
	for _, flag := range strings.TrimSpace(line[next:]) {
		switch flag {
		case 'i', ' ':
		case 'g':
			global = true
		case 'm', 's':
			if !strings.ContainsRune(inline, flag) {
				inline += string(flag)
			}
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	pattern, err := regexp.Compile("(?" + inline + ")" + source)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{pattern: pattern, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.pattern.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	match := r.pattern.FindStringSubmatchIndex(input)
	if match == nil {
		return input, false
	}
	expanded := r.pattern.ExpandString(nil, r.replacement, input, match)
	output := input[:match[0]] + string(expanded) + input[match[1]:]
	return output, output != input
}

func readDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var out strings.Builder
	for i := start; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			out.WriteByte(c)
			out.WriteByte(line[i+1])
			i++
		case c == delim:
			return out.String(), i + 1, nil
		default:
			out.WriteByte(c)
		}
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordOrSpace(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == ' ' || c == '\t'
}
