package workflow

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResult_KeepsFirstAssignmentOrder(t *testing.T) {
	r := NewResult()
	r.SetBool(KeyLambdaResult, true)
	r.SetString("b", "1")
	r.SetString("a", "2")
	r.SetBool(KeyLambdaResult, false)

	require.Equal(t, []string{KeyLambdaResult, "b", "a"}, r.Keys())
	require.Equal(t, 3, r.Len())
	require.False(t, r.LambdaResult())
}

func TestResult_MarshalJSON(t *testing.T) {
	r := NewResult()
	r.SetBool(KeyLambdaResult, false)
	r.SetString(KeyFailureReason, `quote " and slash \`)
	r.SetInt(KeyStatusCode, 409)
	r.SetTime(KeyConnectStartTime, time.Date(2026, 1, 2, 3, 4, 5, 600000000, time.FixedZone("MST", -7*3600)))

	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.Equal(t, `{"LambdaResult":false,"FailureReason":"quote \" and slash \\","StatusCode":409,"ConnectStartTime":"2026-01-02T10:04:05.6Z"}`, string(b))
}

func TestResult_EmptyMarshalsAsObject(t *testing.T) {
	b, err := json.Marshal(NewResult())
	require.NoError(t, err)
	require.Equal(t, `{}`, string(b))
}

func TestFailed(t *testing.T) {
	r := Failed("No session url parameter")
	require.Equal(t, []string{KeyLambdaResult, KeyFailureReason}, r.Keys())
	require.False(t, r.LambdaResult())
	require.Equal(t, "No session url parameter", r.FailureReason())
	require.Zero(t, r.StatusCode())
}

func TestResult_LogValue(t *testing.T) {
	r := NewResult()
	r.SetBool(KeyLambdaResult, true)
	r.SetString(KeySessionStatus, "connected")

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("done", "result", r)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, map[string]any{"LambdaResult": true, "SessionStatus": "connected"}, line["result"])
}
