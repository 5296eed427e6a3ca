package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestNewAddsFunctionName(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "caption-lambda")
	r := New(Namespace)
	if r.dimensions["FunctionName"] != "caption-lambda" {
		t.Errorf("expected FunctionName dimension, got %v", r.dimensions)
	}

	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if _, ok := New(Namespace).dimensions["FunctionName"]; ok {
		t.Error("FunctionName should be absent outside Lambda")
	}
}

func TestFlushWritesEMF(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	buf := captureOutput(t)

	New(Namespace).
		Dimension("Stage", "caption").
		Dimension("Result", "success").
		Duration("StageLatencyMs", 1500*time.Millisecond).
		Count("PostCreateResult").
		Property("postId", "abc").
		Flush()

	line := strings.TrimSpace(buf.String())
	if strings.Count(line, "\n") != 0 {
		t.Fatalf("expected a single line, got %q", line)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["Stage"] != "caption" || doc["postId"] != "abc" {
		t.Errorf("missing dimension or property: %v", doc)
	}
	if doc["StageLatencyMs"] != float64(1500) {
		t.Errorf("unexpected latency %v", doc["StageLatencyMs"])
	}

	aws := doc["_aws"].(map[string]any)
	cw := aws["CloudWatchMetrics"].([]any)[0].(map[string]any)
	if cw["Namespace"] != Namespace {
		t.Errorf("unexpected namespace %v", cw["Namespace"])
	}
	dims := cw["Dimensions"].([]any)[0].([]any)
	if len(dims) != 2 || dims[0] != "Result" || dims[1] != "Stage" {
		t.Errorf("expected sorted dimension keys, got %v", dims)
	}
	if n := len(cw["Metrics"].([]any)); n != 2 {
		t.Errorf("expected 2 metric definitions, got %d", n)
	}
}

func TestFlushWithoutMetricsIsSilent(t *testing.T) {
	buf := captureOutput(t)
	New(Namespace).Dimension("Stage", "storage").Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestMetricOverwrite(t *testing.T) {
	r := New(Namespace).Metric("X", 1, UnitCount).Metric("X", 5, UnitCount)
	if len(r.metrics) != 1 || r.values["X"] != 5 {
		t.Errorf("expected single definition with last value, got %v %v", r.metrics, r.values)
	}
}
