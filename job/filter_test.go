package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermMatch(t *testing.T) {
	r := Record{"name": "Acme Ltd", "age": 42, "score": "7.5", "city": "Paris"}

	tests := []struct {
		name string
		term Term
		want bool
	}{
		{"eq default", Term{Field: "name", Value: "Acme Ltd"}, true},
		{"eq numeric across types", Term{Field: "age", Operator: OpEq, Value: uint64(42)}, true},
		{"neq", Term{Field: "name", Operator: OpNeq, Value: ""}, true},
		{"gt", Term{Field: "age", Operator: OpGt, Value: 40}, true},
		{"gte equal", Term{Field: "age", Operator: OpGte, Value: 42}, true},
		{"lt string number", Term{Field: "score", Operator: OpLt, Value: 10}, true},
		{"lte false", Term{Field: "age", Operator: OpLte, Value: 41}, false},
		{"in", Term{Field: "city", Operator: OpIn, Value: []any{"Rome", "Paris"}}, true},
		{"not in", Term{Field: "city", Operator: OpNotIn, Value: []string{"Rome"}}, true},
		{"like prefix", Term{Field: "name", Operator: OpLike, Value: "Acme%"}, true},
		{"like single char", Term{Field: "city", Operator: OpLike, Value: "P_ris"}, true},
		{"like literal dot", Term{Field: "score", Operator: OpLike, Value: "7x5"}, false},
		{"missing field eq", Term{Field: "zip", Value: "1"}, false},
		{"missing field neq", Term{Field: "zip", Operator: OpNeq, Value: "1"}, true},
		{"unknown operator", Term{Field: "age", Operator: "between", Value: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.term.Match(r))
		})
	}
}

func TestFilterMatch(t *testing.T) {
	r := Record{"name": "a", "age": 3}
	assert.True(t, Filter(nil).Match(r))
	assert.True(t, Filter{{Field: "name", Value: "a"}, {Field: "age", Operator: OpGt, Value: 1}}.Match(r))
	assert.False(t, Filter{{Field: "name", Value: "a"}, {Field: "age", Operator: OpGt, Value: 5}}.Match(r))
}
