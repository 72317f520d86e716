package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// records decodes JSON lines, dropping fields that vary between runs.
func records(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range bytes.Split(bytes.TrimSpace(b), []byte("\n")) {
		if len(bytes.TrimSpace(ln)) == 0 {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal(ln, &m); err != nil {
			t.Fatalf("decode %s: %v", ln, err)
		}
		delete(m, "time")
		delete(m, "duration_ms")
		out = append(out, m)
	}
	return out
}

func TestStepGolden(t *testing.T) {
	cases := []struct {
		golden string
		run    func(Logger)
	}{
		{"step_golden.jsonl", func(l Logger) {
			StartStep(l, "git_count_commits", "HEAD").OK("count", 12)
		}},
		{"step_failed_golden.jsonl", func(l Logger) {
			_ = StartStep(l, "cmake_build", "build", "config", "Release").
				Fail(errors.New("cmake --build exited 2"), "password", "hunter2")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.golden, func(t *testing.T) {
			var buf bytes.Buffer
			ts := false
			l, _, err := New(Options{Out: &buf, Format: "json", Level: "debug", ReportTimestamp: &ts})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			l = l.With("run_id", "abc123", "command", "verpack build").With("component", "version")
			tc.run(l)

			want, err := os.ReadFile(filepath.Join("testdata", tc.golden))
			if err != nil {
				t.Fatalf("read golden: %v", err)
			}
			if got, exp := records(t, buf.Bytes()), records(t, want); !reflect.DeepEqual(exp, got) {
				t.Fatalf("golden mismatch\nwant: %v\ngot:  %v", exp, got)
			}
		})
	}
}
