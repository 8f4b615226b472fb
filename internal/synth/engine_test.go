// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/drizzle/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoffs to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	claudeRetryBase = time.Millisecond
	os.Exit(m.Run())
}

// scriptedBackend returns canned responses in order, then repeats the last.
type scriptedBackend struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Generate(_ context.Context, req Request) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func addStub() types.StubDescriptor {
	return types.StubDescriptor{
		Name:       "add",
		Params:     []string{"a", "b"},
		ParamTypes: map[string]string{"a": "int", "b": "int"},
		ReturnType: "int",
		Doc:        "add adds two numbers.",
		Line:       3,
	}
}

func TestSynthesizeAcceptsValidBody(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"return a + b"}}
	eng := NewEngine(backend, EngineOptions{})

	impl, err := eng.Synthesize(context.Background(), addStub())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if impl != "return a + b" {
		t.Errorf("impl = %q", impl)
	}
	if backend.calls != 1 {
		t.Errorf("calls = %d, want 1", backend.calls)
	}
}

func TestSynthesizeCacheIdempotence(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"return a + b"}}
	eng := NewEngine(backend, EngineOptions{})
	d := addStub()

	for i := 0; i < 3; i++ {
		if _, err := eng.Synthesize(context.Background(), d); err != nil {
			t.Fatalf("Synthesize #%d: %v", i+1, err)
		}
	}

	// Two extra calls after the first serve from the cache: still one
	// generation request in total.
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
	if !eng.Cached("add") {
		t.Error("implementation not cached")
	}
}

func TestSynthesizeRetryWithFeedback(t *testing.T) {
	backend := &scriptedBackend{responses: []string{
		"return a +",   // syntax fault
		"return a + b", // corrected
	}}
	eng := NewEngine(backend, EngineOptions{MaxRetries: 2})

	impl, err := eng.Synthesize(context.Background(), addStub())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if impl != "return a + b" {
		t.Errorf("impl = %q", impl)
	}
	if backend.calls != 2 {
		t.Fatalf("calls = %d, want 2", backend.calls)
	}

	// The second prompt must carry the parser's fault text from the first.
	if !strings.Contains(backend.prompts[1], "previous attempt was rejected") {
		t.Errorf("retry prompt lacks feedback preamble:\n%s", backend.prompts[1])
	}
	if !strings.Contains(backend.prompts[1], "expected") {
		t.Errorf("retry prompt lacks parser message:\n%s", backend.prompts[1])
	}
	if strings.Contains(backend.prompts[0], "previous attempt") {
		t.Error("first prompt already contains retry feedback")
	}
}

func TestSynthesizeExhaustion(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"return a +"}}
	eng := NewEngine(backend, EngineOptions{MaxRetries: 2})

	_, err := eng.Synthesize(context.Background(), addStub())
	if err == nil {
		t.Fatal("expected GenerationExhaustedFault")
	}

	var gf *GenerationExhaustedFault
	if !errors.As(err, &gf) {
		t.Fatalf("error = %T, want *GenerationExhaustedFault", err)
	}
	if gf.Stub != "add" {
		t.Errorf("Stub = %q, want add", gf.Stub)
	}
	if gf.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", gf.Attempts)
	}
	if gf.LastFault == "" {
		t.Error("LastFault is empty")
	}
	// Exactly maxRetries+1 generation requests.
	if backend.calls != 3 {
		t.Errorf("calls = %d, want 3", backend.calls)
	}
}

func TestSynthesizeBackendErrorsCountAsAttempts(t *testing.T) {
	boom := errors.New("upstream unavailable")
	backend := &scriptedBackend{
		errs:      []error{boom, nil},
		responses: []string{"", "return a + b"},
	}
	eng := NewEngine(backend, EngineOptions{MaxRetries: 2})

	impl, err := eng.Synthesize(context.Background(), addStub())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if impl != "return a + b" {
		t.Errorf("impl = %q", impl)
	}
	if backend.calls != 2 {
		t.Errorf("calls = %d, want 2", backend.calls)
	}
}

func TestSynthesizeCleansFencedResponse(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"```go\nreturn a + b\n```"}}
	eng := NewEngine(backend, EngineOptions{})

	impl, err := eng.Synthesize(context.Background(), addStub())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if impl != "return a + b" {
		t.Errorf("impl = %q, fences not cleaned", impl)
	}
}

func TestSynthesizeRejectsDuplicateParams(t *testing.T) {
	d := addStub()
	d.Params = []string{"a", "a"}
	backend := &scriptedBackend{responses: []string{"return a"}}
	eng := NewEngine(backend, EngineOptions{})

	if _, err := eng.Synthesize(context.Background(), d); err == nil {
		t.Fatal("expected error for structurally invalid descriptor")
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for invalid descriptor", backend.calls)
	}
}

// countingRecorder records attempts and optionally fails.
type countingRecorder struct {
	attempts []Attempt
	err      error
}

func (r *countingRecorder) RecordAttempt(_ context.Context, a Attempt) error {
	r.attempts = append(r.attempts, a)
	return r.err
}

func TestSynthesizeRecordsAttempts(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"return a +", "return a + b"}}
	rec := &countingRecorder{}
	eng := NewEngine(backend, EngineOptions{MaxRetries: 2, Recorder: rec})

	if _, err := eng.Synthesize(context.Background(), addStub()); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if len(rec.attempts) != 2 {
		t.Fatalf("recorded %d attempts, want 2", len(rec.attempts))
	}
	if rec.attempts[0].Accepted || rec.attempts[0].Fault == "" {
		t.Errorf("first attempt = %+v, want rejected with fault", rec.attempts[0])
	}
	if !rec.attempts[1].Accepted {
		t.Errorf("second attempt = %+v, want accepted", rec.attempts[1])
	}
}

func TestSynthesizeRecorderFailureDoesNotChangeControlFlow(t *testing.T) {
	backend := &scriptedBackend{responses: []string{"return a + b"}}
	rec := &countingRecorder{err: errors.New("disk full")}
	eng := NewEngine(backend, EngineOptions{Recorder: rec})

	impl, err := eng.Synthesize(context.Background(), addStub())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if impl != "return a + b" {
		t.Errorf("impl = %q", impl)
	}
}
