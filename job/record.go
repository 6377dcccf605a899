package job

import (
	"fmt"
	"slices"
)

// Record is one row moving through a job chain.
type Record map[string]any

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the values of fields in order. It is used to identify a
// record in failure reports.
func (r Record) Keys(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = fmt.Sprint(r[f])
	}
	return out
}

// Columns returns the field names in sorted order.
func (r Record) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	slices.Sort(cols)
	return cols
}

// Records converts a payload into a record slice. It accepts a Record, a
// []Record, a map[string]any and a []map[string]any.
func Records(payload any) ([]Record, error) {
	switch v := payload.(type) {
	case []Record:
		return v, nil
	case Record:
		return []Record{v}, nil
	case map[string]any:
		return []Record{Record(v)}, nil
	case []map[string]any:
		out := make([]Record, len(v))
		for i, m := range v {
			out[i] = Record(m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("payload %T is not a record set", payload)
	}
}
