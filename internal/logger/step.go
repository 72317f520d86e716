package logger

import "time"

// Step emits started/ok/failed events for one unit of work under stable keys:
// status, action, resource and duration_ms. The started event is logged at
// debug level so default output only shows outcomes.
type Step struct {
	logger   Logger
	action   string // e.g. "git_count_commits"
	resource string // a ref, directory or file
	started  time.Time
	base     []any
}

// StartStep logs the started event and returns the Step to finish with OK or Fail.
func StartStep(l Logger, action, resource string, extra ...any) *Step {
	s := &Step{logger: l, action: action, resource: resource, started: time.Now(), base: redactPairs(extra)}
	s.logger.Debug(action, s.fields("started", false, s.base)...)
	return s
}

// OK logs the ok event. Extra fields usually carry the result.
func (s *Step) OK(extra ...any) {
	s.logger.Info(s.action, s.fields("ok", true, redactPairs(extra))...)
}

// Fail logs the failed event and returns err unchanged.
func (s *Step) Fail(err error, extra ...any) error {
	fields := s.fields("failed", true, redactPairs(extra))
	if err != nil {
		fields = append(fields, "error", redactError(err))
	}
	s.logger.Error(s.action, fields...)
	return err
}

func (s *Step) fields(status string, timed bool, extra []any) []any {
	out := make([]any, 0, 8+len(extra))
	out = append(out, "status", status, "action", s.action, "resource", s.resource)
	if timed {
		out = append(out, "duration_ms", time.Since(s.started).Milliseconds())
	}
	return append(out, extra...)
}
