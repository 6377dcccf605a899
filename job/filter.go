package job

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Operators understood by Term.
const (
	OpEq    = "eq"
	OpNeq   = "neq"
	OpGt    = "gt"
	OpGte   = "gte"
	OpLt    = "lt"
	OpLte   = "lte"
	OpIn    = "in"
	OpNotIn = "not_in"
	OpLike  = "like"
)

// Term is one condition of a domain filter.
type Term struct {
	Field    string
	Operator string
	Value    any
}

// Filter is a conjunction of terms. An empty filter matches every record.
type Filter []Term

// Match reports whether r satisfies every term.
func (f Filter) Match(r Record) bool {
	for _, t := range f {
		if !t.Match(r) {
			return false
		}
	}
	return true
}

// Match reports whether r satisfies the term. An empty operator means eq.
// A missing field only satisfies neq and not_in.
func (t Term) Match(r Record) bool {
	got, ok := r[t.Field]
	if !ok {
		return t.Operator == OpNeq || t.Operator == OpNotIn
	}
	switch t.Operator {
	case "", OpEq:
		return compare(got, t.Value) == 0
	case OpNeq:
		return compare(got, t.Value) != 0
	case OpGt:
		return compare(got, t.Value) > 0
	case OpGte:
		return compare(got, t.Value) >= 0
	case OpLt:
		return compare(got, t.Value) < 0
	case OpLte:
		return compare(got, t.Value) <= 0
	case OpIn:
		return contains(t.Value, got)
	case OpNotIn:
		return !contains(t.Value, got)
	case OpLike:
		return like(fmt.Sprint(got), fmt.Sprint(t.Value))
	default:
		return false
	}
}

// compare orders numbers numerically when both sides parse, else as text.
func compare(a, b any) int {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(list, v any) bool {
	var items []any
	switch l := list.(type) {
	case []any:
		items = l
	case []string:
		for _, s := range l {
			items = append(items, s)
		}
	default:
		items = []any{l}
	}
	return slices.ContainsFunc(items, func(item any) bool { return compare(item, v) == 0 })
}

// like matches SQL LIKE patterns: % is any run, _ is one character.
func like(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	return err == nil && re.MatchString(s)
}
