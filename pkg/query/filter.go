// Package query evaluates simple front matter predicates against posts.
// Expressions take the form "path=value" or "path!=value", where path is a
// gjson path into the post's metadata (e.g. "series", "author.name").
package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aretw0/mulch/pkg/core"
)

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNeq
)

// Clause is a single path comparison.
type Clause struct {
	Path  string
	Op    Op
	Value string
}

// Filter is a conjunction of clauses. All clauses must match.
type Filter struct {
	clauses []Clause
}

// Parse compiles "path=value" / "path!=value" expressions into a Filter.
func Parse(exprs []string) (*Filter, error) {
	f := &Filter{}
	for _, expr := range exprs {
		clause, err := parseClause(expr)
		if err != nil {
			return nil, err
		}
		f.clauses = append(f.clauses, clause)
	}
	return f, nil
}

func parseClause(expr string) (Clause, error) {
	// "!=" must be checked before "=".
	if i := strings.Index(expr, "!="); i > 0 {
		return Clause{
			Path:  strings.TrimSpace(expr[:i]),
			Op:    OpNeq,
			Value: strings.TrimSpace(expr[i+2:]),
		}, nil
	}
	if i := strings.Index(expr, "="); i > 0 {
		return Clause{
			Path:  strings.TrimSpace(expr[:i]),
			Op:    OpEq,
			Value: strings.TrimSpace(expr[i+1:]),
		}, nil
	}
	return Clause{}, fmt.Errorf("invalid filter expression %q (want path=value or path!=value)", expr)
}

// Empty reports whether the filter has no clauses (matches everything).
func (f *Filter) Empty() bool {
	return f == nil || len(f.clauses) == 0
}

// Match evaluates the filter against a post's front matter.
// Posts whose metadata cannot be serialized never match.
func (f *Filter) Match(p core.Post) bool {
	if f.Empty() {
		return true
	}

	data, err := json.Marshal(p.Metadata)
	if err != nil {
		return false
	}

	for _, clause := range f.clauses {
		result := gjson.GetBytes(data, clause.Path)
		equal := compare(result, clause.Value)

		switch clause.Op {
		case OpEq:
			if !equal {
				return false
			}
		case OpNeq:
			if equal {
				return false
			}
		}
	}
	return true
}

// compare checks a gjson result against the expected literal, using typed
// comparison for numbers and booleans and falling back to string equality.
// For arrays, any element matching counts (so tags=go works).
func compare(result gjson.Result, want string) bool {
	switch result.Type {
	case gjson.Null:
		return want == "" || want == "null"
	case gjson.True, gjson.False:
		b, err := strconv.ParseBool(want)
		return err == nil && b == result.Bool()
	case gjson.Number:
		n, err := strconv.ParseFloat(want, 64)
		return err == nil && n == result.Num
	default:
		if result.IsArray() {
			for _, item := range result.Array() {
				if compare(item, want) {
					return true
				}
			}
			return false
		}
		return result.String() == want
	}
}
