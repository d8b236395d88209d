package interp

import (
	"fmt"
	"regexp"
)

// compileRegExp turns a RegExpLiteral's pattern/flags into a host regular
// expression. There is no ECMA-regex engine in the dependency pack this
// module draws on, so this is the one place the evaluator falls back to the
// standard library (documented in DESIGN.md): Go's RE2 syntax is close
// enough for the subset of patterns this language's test programs use, and
// flags are translated to RE2's inline (?i)/(?s)/(?m) modifiers where they
// have a direct equivalent.
func compileRegExp(pattern, flags string) (*RegExp, error) {
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i':
			prefix += "i"
		case 's':
			prefix += "s"
		case 'm':
			prefix += "m"
		case 'g', 'u', 'y':
			// no direct RE2 equivalent; 'g' only sets the RegExp's global
			// field, the others are accepted and ignored.
		default:
			return nil, fmt.Errorf("unsupported regular expression flag: %q", f)
		}
	}
	expr := pattern
	if prefix != "" {
		expr = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression /%s/%s: %w", pattern, flags, err)
	}
	return &RegExp{re: re, source: pattern, flags: flags, global: containsRune(flags, 'g')}, nil
}

// RegExp is the guest-visible value a RegExpLiteral evaluates to.
type RegExp struct {
	re     *regexp.Regexp
	source string
	flags  string
	global bool
}

func (r *RegExp) String() string { return "/" + r.source + "/" + r.flags }

// Test reports whether s contains a match.
func (r *RegExp) Test(s string) bool { return r.re.MatchString(s) }

// regexpProperty resolves a RegExp's guest-visible members: the `test`
// method plus the `source`/`flags`/`global` fields JS exposes on regex
// values (spec.md §4.4's RegExpLiteral evaluates to this value).
func regexpProperty(r *RegExp, key string) (Value, bool) {
	switch key {
	case "test":
		return &GoFunc{Name: "test", Fn: func(_ Value, args []Value) (Value, error) {
			return r.Test(toDisplayString(argAt(args, 0))), nil
		}}, true
	case "source":
		return r.source, true
	case "flags":
		return r.flags, true
	case "global":
		return r.global, true
	}
	return nil, false
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
