package mitiq

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

/*
Executor schedules circuits on a backend using as few calls as possible and
turns the raw results into expectation values.

Every executed circuit and every result is kept in an append-only history,
and every successful backend call bumps a counter. History grows across Run
and Evaluate calls and is never cleared. Calls may run concurrently (see
WithConcurrency); history is still committed in input order, each call's
circuits and results together, so history pairs always line up.
*/
type Executor struct {
	id           string
	backend      Backend
	config       *Config
	canonicalize Canonicalizer
	postRun      PostRunFunc
	limiter      *RateLimiter
	mu           sync.Mutex
	executed     []*Circuit
	results      []QuantumResult
	calls        int

	// Overrides applied on top of config, nil when unset.
	maxBatchSize *int
	concurrency  *int
}

// PostRunFunc transforms the ordered results of a Run before they are
// returned, e.g. to apply readout calibration. It must keep the length.
type PostRunFunc func(results []QuantumResult) ([]QuantumResult, error)

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) ExecutorOption {
	return func(e *Executor) {
		e.config = config
	}
}

// WithMaxBatchSize caps the circuits per batched call.
func WithMaxBatchSize(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxBatchSize = &n
	}
}

// WithConcurrency allows n backend calls in flight at once.
func WithConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		e.concurrency = &n
	}
}

// WithCanonicalizer sets the key function used to deduplicate circuits.
func WithCanonicalizer(fn Canonicalizer) ExecutorOption {
	return func(e *Executor) {
		e.canonicalize = fn
	}
}

// WithPostRun installs a hook over every Run's final results.
func WithPostRun(fn PostRunFunc) ExecutorOption {
	return func(e *Executor) {
		e.postRun = fn
	}
}

// WithRateLimiter throttles backend calls.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.limiter = rl
	}
}

// NewExecutor wraps a backend. The backend's declared capability decides
// batching and how results are parsed.
func NewExecutor(backend Backend, opts ...ExecutorOption) (*Executor, error) {
	if err := backend.validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		id:           uuid.NewString(),
		backend:      backend,
		config:       NewConfig(),
		canonicalize: CanonicalKey,
	}

	for _, opt := range opts {
		opt(e)
	}

	config := *e.config
	e.config = &config
	if e.maxBatchSize != nil {
		e.config.MaxBatchSize = *e.maxBatchSize
	}
	if e.concurrency != nil {
		e.config.Concurrency = *e.concurrency
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if e.limiter == nil && e.config.RateLimit > 0 {
		e.limiter = NewRateLimiter(e.config.RateLimit, e.config.RateBurst)
	}

	errnie.Info(
		"NewExecutor - id %s, dispatch %s, returns %s, max batch %d",
		e.id, backend.Dispatch(), backend.Returns(), e.config.MaxBatchSize,
	)
	return e, nil
}

func (e *Executor) ID() string {
	return e.id
}

// CanBatch reports whether the backend accepts several circuits per call.
func (e *Executor) CanBatch() bool {
	return e.backend.Dispatch() == DispatchBatched
}

func (e *Executor) MaxBatchSize() int {
	return e.config.MaxBatchSize
}

// ExecutedCircuits returns a copy of every circuit sent to the backend.
func (e *Executor) ExecutedCircuits() []*Circuit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Circuit(nil), e.executed...)
}

// QuantumResults returns a copy of every raw result, aligned with
// ExecutedCircuits.
func (e *Executor) QuantumResults() []QuantumResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]QuantumResult(nil), e.results...)
}

func (e *Executor) CallsToExecutor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// ExportMetrics summarizes the executor's history.
func (e *Executor) ExportMetrics() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	metrics := map[string]any{
		"id":                e.id,
		"dispatch":          e.backend.Dispatch().String(),
		"returns":           e.backend.Returns().String(),
		"calls_to_executor": e.calls,
		"executed_circuits": len(e.executed),
	}
	if e.limiter != nil {
		metrics["throttled_calls"] = e.limiter.Throttled()
	}
	return metrics
}

type runConfig struct {
	forceRunAll    bool
	backendOptions BackendOptions
}

// RunOption configures one Run or Evaluate call.
type RunOption func(*runConfig)

/*
WithForceRunAll controls deduplication. With true (the default) every
circuit is executed even when identical to another, which matters on noisy
hardware where repeats are not interchangeable. With false, circuits with
the same canonical key run once and share the result.
*/
func WithForceRunAll(force bool) RunOption {
	return func(rc *runConfig) {
		rc.forceRunAll = force
	}
}

// WithBackendOptions forwards opts to every backend call.
func WithBackendOptions(opts BackendOptions) RunOption {
	return func(rc *runConfig) {
		rc.backendOptions = opts
	}
}

func newRunConfig(opts []RunOption) runConfig {
	rc := runConfig{forceRunAll: true}
	for _, opt := range opts {
		opt(&rc)
	}
	return rc
}

/*
Run executes circuits and returns one result per input circuit, in input
order. A batched backend receives consecutive chunks of at most
MaxBatchSize circuits; a serial backend one call per circuit. Backend
errors are returned unmodified.
*/
func (e *Executor) Run(ctx context.Context, circuits []*Circuit, opts ...RunOption) ([]QuantumResult, error) {
	rc := newRunConfig(opts)

	ctx, span := tracer.Start(ctx, "mitiq.Executor.Run",
		trace.WithAttributes(
			attribute.String("executor.id", e.id),
			attribute.Int("circuits", len(circuits)),
			attribute.Bool("force_run_all", rc.forceRunAll),
		),
	)
	defer span.End()

	toRun := circuits
	var keys []string
	var index map[string]int

	if !rc.forceRunAll {
		keys = make([]string, len(circuits))
		index = make(map[string]int, len(circuits))
		toRun = make([]*Circuit, 0, len(circuits))

		for i, circuit := range circuits {
			key, err := e.canonicalize(circuit)
			if err != nil {
				span.SetStatus(codes.Error, "canonicalize failed")
				return nil, fmt.Errorf("canonicalize circuit %d: %w", i, err)
			}

			keys[i] = key
			if _, ok := index[key]; !ok {
				index[key] = len(toRun)
				toRun = append(toRun, circuit)
			}
		}

		circuitsDeduplicated.Add(float64(len(circuits) - len(toRun)))
		span.SetAttributes(attribute.Int("unique_circuits", len(toRun)))
	}

	results, err := e.dispatch(ctx, e.chunk(toRun), rc.backendOptions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend call failed")
		return nil, err
	}

	if !rc.forceRunAll {
		expanded := make([]QuantumResult, len(circuits))
		for i, key := range keys {
			expanded[i] = results[index[key]]
		}
		results = expanded
	}

	if e.postRun != nil {
		processed, err := e.postRun(results)
		if err != nil {
			return nil, err
		}
		if len(processed) != len(results) {
			return nil, fmt.Errorf(
				"%w: post-run hook returned %d results for %d circuits", ErrShape, len(processed), len(results),
			)
		}
		results = processed
	}

	return results, nil
}

// chunk splits circuits into backend calls.
func (e *Executor) chunk(circuits []*Circuit) [][]*Circuit {
	size := 1
	if e.CanBatch() {
		size = e.config.MaxBatchSize
	}

	chunks := make([][]*Circuit, 0, (len(circuits)+size-1)/size)
	for start := 0; start < len(circuits); start += size {
		end := min(start+size, len(circuits))
		chunks = append(chunks, circuits[start:end])
	}
	return chunks
}

/*
dispatch runs every chunk, at most Concurrency at a time, and returns the
results flattened in chunk order regardless of completion order. History is
committed in chunk order too, once every call has returned; calls that
succeeded before another one failed are still recorded.
*/
func (e *Executor) dispatch(ctx context.Context, chunks [][]*Circuit, opts BackendOptions) ([]QuantumResult, error) {
	out := make([][]QuantumResult, len(chunks))
	done := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			results, err := e.call(gctx, chunk, opts)
			if err != nil {
				return err
			}
			out[i] = results
			done[i] = true
			return nil
		})
	}

	err := g.Wait()
	e.commit(chunks, out, done)
	if err != nil {
		return nil, err
	}

	var results []QuantumResult
	for _, chunkResults := range out {
		results = append(results, chunkResults...)
	}
	return results, nil
}

// commit appends finished calls to the history in chunk order, under one
// lock so concurrent runs never interleave inside a dispatch.
func (e *Executor) commit(chunks [][]*Circuit, out [][]QuantumResult, done []bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, chunk := range chunks {
		if !done[i] {
			continue
		}
		e.calls++
		e.executed = append(e.executed, chunk...)
		e.results = append(e.results, out[i]...)
	}
}

// call makes exactly one backend invocation.
func (e *Executor) call(ctx context.Context, chunk []*Circuit, opts BackendOptions) ([]QuantumResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, span := tracer.Start(ctx, "mitiq.Executor.call",
		trace.WithAttributes(
			attribute.String("executor.id", e.id),
			attribute.String("dispatch", e.backend.Dispatch().String()),
			attribute.Int("circuits", len(chunk)),
		),
	)
	defer span.End()

	start := time.Now()
	var results []QuantumResult
	var err error

	if e.CanBatch() {
		results, err = e.backend.batched(ctx, chunk, opts)
	} else {
		var result QuantumResult
		result, err = e.backend.serial(ctx, chunk[0], opts)
		results = []QuantumResult{result}
	}

	recordBackendCall(e.backend, start, len(chunk), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend error")
		return nil, err
	}

	if len(results) != len(chunk) {
		return nil, fmt.Errorf(
			"%w: backend returned %d results for %d circuits", ErrShape, len(results), len(chunk),
		)
	}
	return results, nil
}

/*
Evaluate returns one real expectation value per circuit. With a measurement
backend each circuit is expanded into one circuit per commuting group of
observable; with a density-matrix backend each state is reduced through the
observable's matrix; with a scalar backend results are returned as is and
observable must be nil. Configuration mismatches are reported before any
backend call is made.
*/
func (e *Executor) Evaluate(
	ctx context.Context, circuits []*Circuit, observable *Observable, opts ...RunOption,
) ([]float64, error) {
	values, err := e.EvaluateComplex(ctx, circuits, observable, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = real(v)
	}
	return out, nil
}

// EvaluateComplex is Evaluate without discarding imaginary parts, which
// only appear for non-Hermitian observables.
func (e *Executor) EvaluateComplex(
	ctx context.Context, circuits []*Circuit, observable *Observable, opts ...RunOption,
) ([]complex128, error) {
	ctx, span := tracer.Start(ctx, "mitiq.Executor.Evaluate",
		trace.WithAttributes(
			attribute.String("executor.id", e.id),
			attribute.Int("circuits", len(circuits)),
			attribute.Bool("observable", observable != nil),
		),
	)
	defer span.End()

	if observable != nil && !observable.IsHermitian(e.config.HermitianTolerance) {
		nonHermitianObservables.Inc()
		log.Printf("Executor %s: expected observable to be hermitian, continue with caution", e.id)
	}

	if err := e.checkObservable(observable); err != nil {
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, err
	}

	all := circuits
	step := 1
	if observable != nil && e.backend.Returns() == ResultMeasurement {
		step = observable.NumGroups()
		if step == 0 {
			// An empty observable is identically zero.
			return make([]complex128, len(circuits)), nil
		}

		all = make([]*Circuit, 0, len(circuits)*step)
		for _, circuit := range circuits {
			all = append(all, observable.MeasureIn(circuit)...)
		}
		span.SetAttributes(attribute.Int("groups", step))
	}

	raw, err := e.Run(ctx, all, opts...)
	if err != nil {
		return nil, err
	}

	values, err := e.parse(raw, observable, step)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse results")
		return nil, err
	}
	return values, nil
}

func (e *Executor) checkObservable(observable *Observable) error {
	returns := e.backend.Returns()

	if observable != nil {
		switch returns {
		case ResultScalar:
			return fmt.Errorf(
				"%w: backend returns scalars; measurement should be configured on the circuit, not via an observable",
				ErrConfiguration,
			)
		case ResultUnspecified:
			return fmt.Errorf(
				"%w: ambiguous: annotate backend return type when using an observable", ErrConfiguration,
			)
		}
		return nil
	}

	switch returns {
	case ResultDensityMatrix:
		return fmt.Errorf("%w: density matrix results require an observable", ErrConfiguration)
	case ResultMeasurement:
		return fmt.Errorf("%w: measurement results require an observable", ErrConfiguration)
	}
	return nil
}

// parse reduces raw results to one value per input circuit.
func (e *Executor) parse(raw []QuantumResult, observable *Observable, step int) ([]complex128, error) {
	returns := e.backend.Returns()

	switch {
	case e.backend.scalarLike():
		values := make([]complex128, len(raw))
		for i, r := range raw {
			s, ok := r.(Scalar)
			if !ok {
				return nil, e.unparseable(r)
			}
			values[i] = complex(float64(s), 0)
		}
		return values, nil

	case returns == ResultDensityMatrix:
		values := make([]complex128, len(raw))
		for i, r := range raw {
			rho, ok := r.(*DensityMatrix)
			if !ok || rho == nil {
				return nil, e.unparseable(r)
			}

			value, err := observable.expectationFromDensityMatrix(rho)
			if err != nil {
				return nil, err
			}
			values[i] = value
		}
		return values, nil

	case returns == ResultMeasurement:
		if len(raw)%step != 0 {
			return nil, fmt.Errorf(
				"%w: %d measurement results do not divide into %d groups", ErrShape, len(raw), step,
			)
		}

		values := make([]complex128, 0, len(raw)/step)
		for start := 0; start < len(raw); start += step {
			measurements := make([]*MeasurementResult, step)
			for j, r := range raw[start : start+step] {
				m, ok := r.(*MeasurementResult)
				if !ok || m == nil {
					return nil, e.unparseable(r)
				}
				measurements[j] = m
			}

			value, err := observable.expectationFromMeasurements(measurements)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	}

	return nil, fmt.Errorf("%w: could not parse results from backend returning %s", ErrConfiguration, returns)
}

func (e *Executor) unparseable(r QuantumResult) error {
	return fmt.Errorf(
		"%w: could not parse executed result %s from backend returning %s",
		ErrConfiguration, spew.Sprintf("%#v", r), e.backend.Returns(),
	)
}
