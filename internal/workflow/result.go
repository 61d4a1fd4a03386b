package workflow

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

// Result keys shared by several workflows.
const (
	KeyLambdaResult            = "LambdaResult"
	KeyFailureReason           = "FailureReason"
	KeyStatusCode              = "StatusCode"
	KeySessionStatus           = "SessionStatus"
	KeyTimeout                 = "Timeout"
	KeySessionURL              = "SessionUrl"
	KeyPropertiesURL           = "PropertiesUrl"
	KeyControlMessageURL       = "ControlMessageUrl"
	KeyQueryURL                = "QueryUrl"
	KeyConnectStartTime        = "ConnectStartTime"
	KeySessionRetrieved        = "SessionRetrieved"
	KeySessionTimeout          = "SessionTimeout"
	KeyControlMessageAvailable = "ControlMessageAvailable"
	KeyNumberType              = "NumberType"
	KeySmsSent                 = "SmsSent"
)

type Kind uint8

const (
	KindBool Kind = iota + 1
	KindString
	KindInt
	KindTime
)

// Value is one scalar in a Result.
type Value struct {
	kind Kind
	b    bool
	s    string
	i    int
	t    time.Time
}

func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func StringValue(s string) Value  { return Value{kind: KindString, s: s} }
func IntValue(i int) Value        { return Value{kind: KindInt, i: i} }
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t} }
func (v Value) Kind() Kind        { return v.kind }
func (v Value) Bool() bool        { return v.b }
func (v Value) Str() string       { return v.s }
func (v Value) Int() int          { return v.i }
func (v Value) Time() time.Time   { return v.t }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindString:
		return json.Marshal(v.s)
	case KindInt:
		return strconv.AppendInt(nil, int64(v.i), 10), nil
	case KindTime:
		return json.Marshal(v.t.UTC().Format(time.RFC3339Nano))
	default:
		return []byte("null"), nil
	}
}

func (v Value) slogValue() slog.Value {
	switch v.kind {
	case KindBool:
		return slog.BoolValue(v.b)
	case KindString:
		return slog.StringValue(v.s)
	case KindInt:
		return slog.IntValue(v.i)
	case KindTime:
		return slog.TimeValue(v.t)
	default:
		return slog.AnyValue(nil)
	}
}

// Result is the flat, ordered document returned to the contact flow. Keys
// keep the position of their first assignment.
type Result struct {
	keys   []string
	values map[string]Value
}

func NewResult() *Result {
	return &Result{values: make(map[string]Value)}
}

// Failed is the canonical failure: LambdaResult false with a reason.
func Failed(reason string) *Result {
	r := NewResult()
	r.Fail(reason)
	return r
}

func (r *Result) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Result) SetBool(key string, b bool)      { r.Set(key, BoolValue(b)) }
func (r *Result) SetString(key, s string)         { r.Set(key, StringValue(s)) }
func (r *Result) SetInt(key string, i int)        { r.Set(key, IntValue(i)) }
func (r *Result) SetTime(key string, t time.Time) { r.Set(key, TimeValue(t)) }

func (r *Result) Fail(reason string) {
	r.SetBool(KeyLambdaResult, false)
	r.SetString(KeyFailureReason, reason)
}

func (r *Result) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r *Result) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

func (r *Result) Len() int { return len(r.keys) }

// Keys returns the keys in insertion order.
func (r *Result) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *Result) LambdaResult() bool {
	return r.values[KeyLambdaResult].b
}

func (r *Result) FailureReason() string {
	return r.values[KeyFailureReason].s
}

func (r *Result) StatusCode() int {
	return r.values[KeyStatusCode].i
}

func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// LogValue renders the result as a log group in key order.
func (r *Result) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(r.keys))
	for _, k := range r.keys {
		attrs = append(attrs, slog.Attr{Key: k, Value: r.values[k].slogValue()})
	}
	return slog.GroupValue(attrs...)
}
