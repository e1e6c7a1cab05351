package docstore

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type serverTimestamp struct{}

func (serverTimestamp) MarshalJSON() ([]byte, error) {
	return nil, errors.New("docstore: ServerTimestamp must be resolved before encoding")
}

// ServerTimestamp is replaced by the store's clock when the write is applied.
var ServerTimestamp interface{} = serverTimestamp{}

// Resolve returns a copy of data where every ServerTimestamp is replaced by now.
func Resolve(data Data, now time.Time) Data {
	out := make(Data, len(data))
	for k, v := range data {
		out[k] = resolveValue(v, now)
	}
	return out
}

func resolveValue(v interface{}, now time.Time) interface{} {
	switch val := v.(type) {
	case serverTimestamp:
		return now.UTC()
	case map[string]interface{}:
		return map[string]interface{}(Resolve(val, now))
	case Data:
		return map[string]interface{}(Resolve(val, now))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, now)
		}
		return out
	default:
		return v
	}
}

// Apply computes the content of a document after a Set: `incoming` replaces `existing`,
// or is merged into it at the top level when `merge` is set.
func Apply(existing, incoming Data, merge bool, now time.Time) Data {
	resolved := Resolve(incoming, now)
	if !merge || existing == nil {
		return resolved
	}
	out := make(Data, len(existing)+len(resolved))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range resolved {
		out[k] = v
	}
	return out
}

// Encode serializes data the way every backend stores it.
func Encode(data Data) ([]byte, error) {
	if data == nil {
		data = Data{}
	}
	b, err := json.Marshal(data)
	return b, errors.Wrap(err, "encoding document")
}

// Decode is the inverse of Encode. Numbers are kept as json.Number.
func Decode(b []byte) (Data, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var data Data
	if err := dec.Decode(&data); err != nil {
		return nil, errors.Wrap(err, "decoding document")
	}
	if data == nil {
		data = Data{}
	}
	return data, nil
}

// Normalize round-trips data through Encode/Decode so in-memory backends hold the same values as persistent ones.
func Normalize(data Data) (Data, error) {
	b, err := Encode(data)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func normalizeValue(v interface{}) interface{} {
	data, err := Normalize(Data{"v": v})
	if err != nil {
		return v
	}
	return data["v"]
}

// Value helpers, tolerant to the representations produced by Decode and by callers.

func String(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

func Int(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return int(f)
		}
	case string:
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return 0
}

func Bool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func Strings(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, String(item))
		}
		return out
	}
	return nil
}

// Time reads a time value; the zero time is returned for anything else.
func Time(v interface{}) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return t
		}
	}
	return time.Time{}
}

// TimePtr is Time for optional fields.
func TimePtr(v interface{}) *time.Time {
	t := Time(v)
	if t.IsZero() {
		return nil
	}
	return &t
}
