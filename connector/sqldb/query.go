package sqldb

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/etlkit/job"
)

// termExpr converts a domain term into a quoted gorm condition.
func termExpr(t job.Term) clause.Expression {
	col := clause.Column{Name: t.Field}
	switch t.Operator {
	case job.OpNeq:
		return clause.Neq{Column: col, Value: t.Value}
	case job.OpGt:
		return clause.Gt{Column: col, Value: t.Value}
	case job.OpGte:
		return clause.Gte{Column: col, Value: t.Value}
	case job.OpLt:
		return clause.Lt{Column: col, Value: t.Value}
	case job.OpLte:
		return clause.Lte{Column: col, Value: t.Value}
	case job.OpIn:
		return clause.IN{Column: col, Values: values(t.Value)}
	case job.OpNotIn:
		return clause.Not(clause.IN{Column: col, Values: values(t.Value)})
	case job.OpLike:
		return clause.Like{Column: col, Value: t.Value}
	default:
		return clause.Eq{Column: col, Value: t.Value}
	}
}

func values(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// scoped applies the domain filter to a table query.
func scoped(db *gorm.DB, table string, domain job.Filter) *gorm.DB {
	q := db.Table(table)
	for _, t := range domain {
		q = q.Where(termExpr(t))
	}
	return q
}
