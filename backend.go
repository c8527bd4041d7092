package mitiq

import (
	"context"
	"fmt"
)

// Dispatch says whether a backend takes one circuit per call or a batch.
type Dispatch int

const (
	DispatchSerial Dispatch = iota
	DispatchBatched
)

func (d Dispatch) String() string {
	if d == DispatchBatched {
		return "batched"
	}
	return "serial"
}

// BackendOptions are forwarded untouched to every backend call.
type BackendOptions map[string]any

// SerialFunc runs one circuit and returns one result.
type SerialFunc func(ctx context.Context, circuit *Circuit, opts BackendOptions) (QuantumResult, error)

// BatchedFunc runs a batch of circuits and returns one result per circuit,
// in order.
type BatchedFunc func(ctx context.Context, circuits []*Circuit, opts BackendOptions) ([]QuantumResult, error)

/*
Backend describes the execution callable and the capability it declares:
serial or batched, and which kind of QuantumResult it returns. The declared
capability alone drives dispatch and result parsing.
*/
type Backend struct {
	serial  SerialFunc
	batched BatchedFunc
	returns ResultType
}

// Serial declares a one-circuit-per-call backend.
func Serial(fn SerialFunc, returns ResultType) Backend {
	return Backend{serial: fn, returns: returns}
}

// Batched declares a backend that accepts a list of circuits per call.
func Batched(fn BatchedFunc, returns ResultType) Backend {
	return Backend{batched: fn, returns: returns}
}

func (b Backend) Dispatch() Dispatch {
	if b.batched != nil {
		return DispatchBatched
	}
	return DispatchSerial
}

func (b Backend) Returns() ResultType {
	return b.returns
}

func (b Backend) validate() error {
	switch {
	case b.serial == nil && b.batched == nil:
		return fmt.Errorf("%w: backend has no execution function", ErrConfiguration)
	case b.serial != nil && b.batched != nil:
		return fmt.Errorf("%w: backend declares both serial and batched functions", ErrConfiguration)
	case b.batched != nil && b.returns == ResultUnspecified:
		return fmt.Errorf("%w: batched backend must declare its result type", ErrConfiguration)
	case b.returns < ResultUnspecified || b.returns > ResultMeasurement:
		return fmt.Errorf("%w: unknown result type %s", ErrConfiguration, b.returns)
	}
	return nil
}

// scalarLike reports the branch where results are already expectation values.
func (b Backend) scalarLike() bool {
	return b.returns == ResultScalar || b.returns == ResultUnspecified
}
