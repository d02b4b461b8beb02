package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ParseError reports a malformed rule definition. A single bad rule
// is skipped at load time; the remaining rules still load.
type ParseError struct {
	Rule string
	Term string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Term != "" {
		return fmt.Sprintf("rule %q: term %q: %v", e.Rule, e.Term, e.Err)
	}
	return fmt.Sprintf("rule %q: %v", e.Rule, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// term is the surface form of one rule clause: a functor name and its
// raw arguments.
type term struct {
	functor string
	args    []Arg
}

// parseTerm parses `functor(arg, arg, ...)` where an argument is a
// ?variable, a "quoted string", a number, or a bare word (treated as
// a constant).
func parseTerm(s string) (term, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return term{}, fmt.Errorf("expected functor(args...)")
	}
	name := strings.TrimSpace(s[:open])
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return term{}, fmt.Errorf("bad functor name %q", name)
		}
	}
	body := s[open+1 : len(s)-1]

	var args []Arg
	for _, raw := range splitArgs(body) {
		raw = strings.TrimSpace(raw)
		switch {
		case raw == "":
			return term{}, fmt.Errorf("empty argument")
		case raw[0] == '?':
			v := raw[1:]
			if v == "" {
				return term{}, fmt.Errorf("empty variable name")
			}
			args = append(args, Arg{Var: v})
		case raw[0] == '"':
			unq, err := strconv.Unquote(raw)
			if err != nil {
				return term{}, fmt.Errorf("bad string literal %s", raw)
			}
			args = append(args, Arg{Const: unq})
		default:
			args = append(args, Arg{Const: raw})
		}
	}
	return term{functor: name, args: args}, nil
}

// splitArgs splits a comma-separated argument list, respecting quoted
// strings (commas inside quotes do not split).
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	var cur strings.Builder
	inQuote := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			cur.WriteRune(r)
			escaped = true
		case r == '"':
			cur.WriteRune(r)
			inQuote = !inQuote
		case r == ',' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// compileWhen turns a parsed body term into a pattern or guard.
func compileWhen(ruleName string, raw string) (pat *Pattern, gd *Guard, err error) {
	t, err := parseTerm(raw)
	if err != nil {
		return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: err}
	}
	switch t.functor {
	case "fact":
		if len(t.args) != 3 {
			return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: fmt.Errorf("fact takes 3 arguments, got %d", len(t.args))}
		}
		return &Pattern{Subject: t.args[0], Predicate: t.args[1], Object: t.args[2]}, nil, nil

	case "regex":
		if err := wantVarAndConst(t); err != nil {
			return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: err}
		}
		re, err := regexp.Compile(t.args[1].Const)
		if err != nil {
			return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: fmt.Errorf("bad regex: %v", err)}
		}
		return nil, &Guard{Kind: GuardRegex, Var: t.args[0].Var, Regex: re}, nil

	case "greaterThan", "lessThan":
		if err := wantVarAndConst(t); err != nil {
			return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: err}
		}
		n, err := strconv.ParseFloat(t.args[1].Const, 64)
		if err != nil {
			return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: fmt.Errorf("numeric bound required: %v", err)}
		}
		kind := GuardGreaterThan
		if t.functor == "lessThan" {
			kind = GuardLessThan
		}
		return nil, &Guard{Kind: kind, Var: t.args[0].Var, Number: n}, nil

	case "equal", "notEqual":
		if len(t.args) != 2 || !t.args[0].IsVar() {
			return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: fmt.Errorf("%s takes (?var, value)", t.functor)}
		}
		kind := GuardEqual
		if t.functor == "notEqual" {
			kind = GuardNotEqual
		}
		g := &Guard{Kind: kind, Var: t.args[0].Var}
		if t.args[1].IsVar() {
			g.ValueVar = t.args[1].Var
		} else {
			g.Value = t.args[1].Const
		}
		return nil, g, nil

	default:
		return nil, nil, &ParseError{Rule: ruleName, Term: raw, Err: fmt.Errorf("unknown functor %q", t.functor)}
	}
}

func wantVarAndConst(t term) error {
	if len(t.args) != 2 || !t.args[0].IsVar() || t.args[1].IsVar() {
		return fmt.Errorf("%s takes (?var, literal)", t.functor)
	}
	return nil
}

// compileThen turns a parsed action term into an Action. Only fact
// assertions are permitted on the right-hand side.
func compileThen(ruleName string, raw string) (*Action, error) {
	t, err := parseTerm(raw)
	if err != nil {
		return nil, &ParseError{Rule: ruleName, Term: raw, Err: err}
	}
	if t.functor != "fact" || len(t.args) != 3 {
		return nil, &ParseError{Rule: ruleName, Term: raw, Err: fmt.Errorf("actions must be fact(s, p, o)")}
	}
	return &Action{Subject: t.args[0], Predicate: t.args[1], Object: t.args[2]}, nil
}
