package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const defaultPassLimit = 30

var ErrUnstable = errors.New("substitution rules did not converge")

// Rule rewrites text once and reports whether anything changed.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// Parser recognizes and compiles one rules-file line.
type Parser interface {
	CanParse(line string) bool
	Parse(line string) (Rule, error)
}

// Engine rewrites finalized dictation segments with substitutions loaded
// from a rules file. Rules run in file order, repeatedly, until a pass
// changes nothing or the pass limit is hit.
type Engine struct {
	rules     []Rule
	passLimit int
}

// NewEngine loads rules from path. A blank or missing path yields an engine
// that returns text untouched.
func NewEngine(path string, passLimit int) (*Engine, error) {
	return NewEngineWithParsers(path, passLimit, DefaultParsers())
}

func NewEngineWithParsers(path string, passLimit int, parsers []Parser) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return Compile("", passLimit, parsers)
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Compile("", passLimit, parsers)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	engine, err := Compile(string(contents), passLimit, parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return engine, nil
}

// Compile builds an engine from rules text.
func Compile(contents string, passLimit int, parsers []Parser) (*Engine, error) {
	if passLimit <= 0 {
		passLimit = defaultPassLimit
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}

	var compiled []Rule
	for number, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", number+1, err)
		}
		compiled = append(compiled, rule)
	}

	return &Engine{rules: compiled, passLimit: passLimit}, nil
}

// Len reports how many rules are loaded.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply rewrites text until it is stable. Text that is still changing after
// the pass limit is returned with ErrUnstable.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	current := text
	for pass := 0; pass < e.passLimit; pass++ {
		dirty := false
		for _, rule := range e.rules {
			if next, changed := rule.Apply(current); changed {
				current = next
				dirty = true
			}
		}
		if !dirty {
			return current, nil
		}
	}

	return current, fmt.Errorf("%w after %d passes", ErrUnstable, e.passLimit)
}

// parseLine returns the rule from the first accepting parser that compiles
// the line. When every accepting parser fails, the first failure is reported.
func parseLine(line string, parsers []Parser) (Rule, error) {
	var firstErr error
	for _, parser := range parsers {
		if !parser.CanParse(line) {
			continue
		}
		rule, err := parser.Parse(line)
		if err == nil {
			return rule, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, errors.New("unsupported rule format")
}
