// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pdiddy/drizzle/pkg/types"
)

// defaultMaxRetries yields a 3-attempt total budget per stub.
const defaultMaxRetries = 2

// backoffBase controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Attempt is the diagnostic record of one generation attempt.
type Attempt struct {
	Stub      string
	Attempt   int // 1-based
	Prompt    string
	Response  string
	Fault     string // empty when accepted
	Accepted  bool
	Duration  time.Duration
	CreatedAt time.Time
}

// Recorder receives one record per generation attempt. Recording is
// diagnostics only: a recorder error is reported to the verbose writer and
// otherwise ignored.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// MaxRetries is the number of attempts after the first; zero or
	// negative selects the default budget of 3 total attempts.
	MaxRetries int

	// Packages names the sandbox bindings, advertised in the prompt so the
	// model stays inside the allow-list.
	Packages []string

	// Verbose receives prompts, responses, and faults. Nil disables echo.
	Verbose io.Writer

	// Recorder receives per-attempt transcript records. Nil disables
	// recording.
	Recorder Recorder
}

// Engine owns the synthesis pipeline for one run: prompt construction,
// backend invocation, response cleaning, syntax validation, bounded retry
// with fault feedback, and the per-stub implementation cache.
//
// The engine is single-threaded by contract: the host program's own control
// flow serializes dispatch calls, so the cache needs no lock. A concurrent
// variant would need a per-stub-name guard to avoid duplicate generation
// requests for an un-cached stub.
type Engine struct {
	backend    Backend
	maxRetries int
	packages   []string
	verbose    io.Writer
	recorder   Recorder

	// cache maps stub name → accepted implementation source. Entries are
	// never invalidated within a run; the cache stores code, not results.
	cache map[string]string
}

// NewEngine builds an Engine around a backend.
func NewEngine(backend Backend, opts EngineOptions) *Engine {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	verbose := opts.Verbose
	if verbose == nil {
		verbose = io.Discard
	}
	return &Engine{
		backend:    backend,
		maxRetries: maxRetries,
		packages:   opts.Packages,
		verbose:    verbose,
		recorder:   opts.Recorder,
		cache:      make(map[string]string),
	}
}

// Cached reports whether an implementation is already cached for name.
func (e *Engine) Cached(name string) bool {
	_, ok := e.cache[name]
	return ok
}

// Synthesize returns implementation source for the stub, generating it on
// the first call and serving the cached text afterwards. Exhausting the
// attempt budget returns a GenerationExhaustedFault; the loop is
// {generate → validate → accept | retry-with-fault | exhausted}.
func (e *Engine) Synthesize(ctx context.Context, d types.StubDescriptor) (string, error) {
	if impl, ok := e.cache[d.Name]; ok {
		return impl, nil
	}
	if err := d.Validate(); err != nil {
		return "", err
	}

	var lastFault string

	for attempt := 1; attempt <= e.maxRetries+1; attempt++ {
		if attempt > 1 {
			if err := e.backoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		prompt, err := renderPrompt(d, e.packages, lastFault)
		if err != nil {
			return "", fmt.Errorf("rendering prompt for %s: %w", d.Name, err)
		}

		fmt.Fprintf(e.verbose, "[drizzle] synthesizing %s (attempt %d/%d) via %s\n",
			d.Name, attempt, e.maxRetries+1, e.backend.Name())
		fmt.Fprintf(e.verbose, "[drizzle] prompt:\n%s\n", prompt)

		start := time.Now()
		raw, err := e.backend.Generate(ctx, Request{System: systemPrompt, Prompt: prompt})
		elapsed := time.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastFault = err.Error()
			fmt.Fprintf(e.verbose, "[drizzle] backend fault: %v\n", err)
			e.record(ctx, Attempt{
				Stub: d.Name, Attempt: attempt, Prompt: prompt,
				Fault: lastFault, Duration: elapsed, CreatedAt: start,
			})
			continue
		}

		fmt.Fprintf(e.verbose, "[drizzle] response:\n%s\n", raw)

		impl := Clean(raw)
		if verr := ValidateBody(d, impl); verr != nil {
			var sf *SyntaxValidationFault
			if errors.As(verr, &sf) {
				lastFault = sf.Msg
			} else {
				lastFault = verr.Error()
			}
			fmt.Fprintf(e.verbose, "[drizzle] rejected: %s\n", lastFault)
			e.record(ctx, Attempt{
				Stub: d.Name, Attempt: attempt, Prompt: prompt, Response: raw,
				Fault: lastFault, Duration: elapsed, CreatedAt: start,
			})
			continue
		}

		e.record(ctx, Attempt{
			Stub: d.Name, Attempt: attempt, Prompt: prompt, Response: raw,
			Accepted: true, Duration: elapsed, CreatedAt: start,
		})
		e.cache[d.Name] = impl
		return impl, nil
	}

	return "", &GenerationExhaustedFault{
		Stub:      d.Name,
		Attempts:  e.maxRetries + 1,
		LastFault: lastFault,
	}
}

// backoff sleeps 1x, 2x, 4x... backoffBase between attempts, honoring
// cancellation.
func (e *Engine) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(math.Pow(2, float64(attempt-2))) * backoffBase
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (e *Engine) record(ctx context.Context, a Attempt) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordAttempt(ctx, a); err != nil {
		fmt.Fprintf(e.verbose, "[drizzle] transcript write failed: %v\n", err)
	}
}
