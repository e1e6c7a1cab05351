package docstore

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Filter operators
const (
	OpEqual = "=="
	OpIn    = "in"
)

type (
	// Filter matches documents whose Field compares to Value with Op.
	// A missing field compares equal to nil.
	Filter struct {
		Field string
		Op    string
		Value interface{}
	}

	// Query selects documents of one collection. Without OrderBy, documents come in creation order.
	Query struct {
		Where   []Filter
		OrderBy string
		Desc    bool
		Limit   int
	}
)

func Where(field, op string, value interface{}) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Match reports whether doc satisfies every filter.
func (q Query) Match(doc Document) bool {
	for _, f := range q.Where {
		if !f.match(doc.Data) {
			return false
		}
	}
	return true
}

func (f Filter) match(data Data) bool {
	got := normalizeValue(data[f.Field])
	switch f.Op {
	case OpEqual:
		return reflect.DeepEqual(got, normalizeValue(f.Value))
	case OpIn:
		rv := reflect.ValueOf(f.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if reflect.DeepEqual(got, normalizeValue(rv.Index(i).Interface())) {
				return true
			}
		}
	}
	return false
}

// Apply filters, orders and limits docs in place of a backend that cannot do it natively.
func (q Query) Apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Match(d) {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.OrderBy == "" {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
		va, vb := a.Data[q.OrderBy], b.Data[q.OrderBy]
		if va == nil || vb == nil {
			return va != nil && vb == nil
		}
		c := compareValues(va, vb)
		if q.Desc {
			c = -c
		}
		return c < 0
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// compareValues orders missing values last, then times, numbers and strings in their natural order.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if ta, tb := Time(a), Time(b); !ta.IsZero() && !tb.IsZero() {
		return compareTimes(ta, tb)
	}
	if fa, okA := number(a); okA {
		if fb, okB := number(b); okB {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(String(a), String(b))
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func number(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	return 0, false
}
