package mitiq

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
)

/*
QuantumState is a pure n-qubit state vector. Qubit 0 is the most significant
bit of the basis index, the same convention Matrix, DensityMatrix and
PauliString.Matrix use. It backs the reference simulator.
*/
type QuantumState struct {
	Vector  []complex128
	nqubits int
}

// NewQuantumState returns |0...0> on nqubits qubits.
func NewQuantumState(nqubits int) *QuantumState {
	vector := make([]complex128, 1<<nqubits)
	vector[0] = 1
	return &QuantumState{Vector: vector, nqubits: nqubits}
}

func (qs *QuantumState) NumQubits() int {
	return qs.nqubits
}

func (qs *QuantumState) mask(q int) int {
	return 1 << (qs.nqubits - 1 - q)
}

// Run applies every gate of circuit; measurement gates are skipped.
func (qs *QuantumState) Run(circuit *Circuit) error {
	for i, g := range circuit.Gates {
		if err := qs.Apply(g); err != nil {
			return fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return nil
}

// Apply applies one gate.
func (qs *QuantumState) Apply(g Gate) error {
	for _, q := range g.Qubits {
		if q < 0 || q >= qs.nqubits {
			return fmt.Errorf("%w: qubit %d outside a %d-qubit state", ErrShape, q, qs.nqubits)
		}
	}

	arity := 1
	switch g.Name {
	case GateCNOT, GateCZ:
		arity = 2
	case GateMeasure:
		return nil
	}
	if len(g.Qubits) != arity {
		return fmt.Errorf("%w: %s takes %d qubits, got %d", ErrConfiguration, g.Name, arity, len(g.Qubits))
	}

	switch g.Name {
	case GateCNOT:
		qs.applyCNOT(g.Qubits[0], g.Qubits[1])
		return nil
	case GateCZ:
		qs.applyCZ(g.Qubits[0], g.Qubits[1])
		return nil
	}

	u, err := singleQubitUnitary(g)
	if err != nil {
		return err
	}
	qs.applySingle(g.Qubits[0], u)
	return nil
}

func singleQubitUnitary(g Gate) ([4]complex128, error) {
	const invSqrt2 = 1 / math.Sqrt2

	param := func() (float64, error) {
		if len(g.Params) != 1 {
			return 0, fmt.Errorf("%w: %s takes one parameter", ErrConfiguration, g.Name)
		}
		return g.Params[0], nil
	}

	switch g.Name {
	case GateH:
		return [4]complex128{invSqrt2, invSqrt2, invSqrt2, -invSqrt2}, nil
	case GateX:
		return [4]complex128{0, 1, 1, 0}, nil
	case GateY:
		return [4]complex128{0, -1i, 1i, 0}, nil
	case GateZ:
		return [4]complex128{1, 0, 0, -1}, nil
	case GateS:
		return [4]complex128{1, 0, 0, 1i}, nil
	case GateSdg:
		return [4]complex128{1, 0, 0, -1i}, nil
	case GateRX:
		theta, err := param()
		if err != nil {
			return [4]complex128{}, err
		}
		c, s := complex(math.Cos(theta/2), 0), complex(0, -math.Sin(theta/2))
		return [4]complex128{c, s, s, c}, nil
	case GateRY:
		theta, err := param()
		if err != nil {
			return [4]complex128{}, err
		}
		c, s := complex(math.Cos(theta/2), 0), complex(math.Sin(theta/2), 0)
		return [4]complex128{c, -s, s, c}, nil
	case GateRZ:
		theta, err := param()
		if err != nil {
			return [4]complex128{}, err
		}
		return [4]complex128{cmplx.Exp(complex(0, -theta/2)), 0, 0, cmplx.Exp(complex(0, theta/2))}, nil
	}

	return [4]complex128{}, fmt.Errorf("%w: unsupported gate %q", ErrConfiguration, g.Name)
}

func (qs *QuantumState) applySingle(q int, u [4]complex128) {
	mask := qs.mask(q)
	for i := range qs.Vector {
		if i&mask != 0 {
			continue
		}
		a0, a1 := qs.Vector[i], qs.Vector[i|mask]
		qs.Vector[i] = u[0]*a0 + u[1]*a1
		qs.Vector[i|mask] = u[2]*a0 + u[3]*a1
	}
}

func (qs *QuantumState) applyCNOT(control, target int) {
	cm, tm := qs.mask(control), qs.mask(target)
	for i := range qs.Vector {
		if i&cm != 0 && i&tm == 0 {
			qs.Vector[i], qs.Vector[i|tm] = qs.Vector[i|tm], qs.Vector[i]
		}
	}
}

func (qs *QuantumState) applyCZ(a, b int) {
	am, bm := qs.mask(a), qs.mask(b)
	for i := range qs.Vector {
		if i&am != 0 && i&bm != 0 {
			qs.Vector[i] = -qs.Vector[i]
		}
	}
}

// Probabilities returns |amplitude|^2 per basis state, normalized.
func (qs *QuantumState) Probabilities() []float64 {
	probs := make([]float64, len(qs.Vector))
	total := 0.0
	for i, amplitude := range qs.Vector {
		prob := cmplx.Abs(amplitude)
		prob *= prob
		probs[i] = prob
		total += prob
	}

	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// DensityMatrix returns |psi><psi|.
func (qs *QuantumState) DensityMatrix() *DensityMatrix {
	dim := len(qs.Vector)
	m := NewMatrix(dim, dim)
	for i, a := range qs.Vector {
		for j, b := range qs.Vector {
			m.Set(i, j, a*cmplx.Conj(b))
		}
	}
	return &DensityMatrix{Matrix: m}
}

/*
Sample draws shots computational-basis outcomes without collapsing the
state and reports the bits of qubits, in the listed order.
*/
func (qs *QuantumState) Sample(rng *rand.Rand, shots int, qubits ...int) (*MeasurementResult, error) {
	for _, q := range qubits {
		if q < 0 || q >= qs.nqubits {
			return nil, fmt.Errorf("%w: qubit %d outside a %d-qubit state", ErrShape, q, qs.nqubits)
		}
	}

	probs := qs.Probabilities()
	cumulative := make([]float64, len(probs))
	acc := 0.0
	for i, p := range probs {
		acc += p
		cumulative[i] = acc
	}

	result := &MeasurementResult{
		Qubits: append([]int(nil), qubits...),
		Counts: make(map[string]int),
	}

	var sb strings.Builder
	for shot := 0; shot < shots; shot++ {
		r := rng.Float64() * acc
		outcome := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > r })
		if outcome >= len(cumulative) {
			outcome = len(cumulative) - 1
		}

		sb.Reset()
		for _, q := range qubits {
			if outcome&qs.mask(q) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		result.Counts[sb.String()]++
	}

	return result, nil
}

/*
Simulator is a noiseless state-vector backend, used to check estimators
against exact values. Its sampling generator is seeded and guarded so
batched and concurrent calls stay reproducible per seed and race free.
*/
type Simulator struct {
	NumQubits int
	Shots     int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator simulates at least nqubits qubits and draws shots samples
// per measurement circuit.
func NewSimulator(nqubits, shots int, seed uint64) *Simulator {
	return &Simulator{
		NumQubits: nqubits,
		Shots:     shots,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Simulator) state(circuit *Circuit) (*QuantumState, error) {
	qs := NewQuantumState(max(s.NumQubits, circuit.NumQubits()))
	if err := qs.Run(circuit); err != nil {
		return nil, err
	}
	return qs, nil
}

// DensityMatrixBackend is a serial backend returning exact density matrices.
func (s *Simulator) DensityMatrixBackend() Backend {
	return Serial(func(ctx context.Context, circuit *Circuit, _ BackendOptions) (QuantumResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		qs, err := s.state(circuit)
		if err != nil {
			return nil, err
		}
		return qs.DensityMatrix(), nil
	}, ResultDensityMatrix)
}

/*
SamplingBackend is a batched backend returning sampled counts of each
circuit's measurement gates. BackendOptions{"shots": n} overrides the
simulator's shot count for one call.
*/
func (s *Simulator) SamplingBackend() Backend {
	return Batched(func(ctx context.Context, circuits []*Circuit, opts BackendOptions) ([]QuantumResult, error) {
		shots := s.Shots
		if v, ok := opts["shots"].(int); ok {
			shots = v
		}

		results := make([]QuantumResult, len(circuits))
		for i, circuit := range circuits {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			qs, err := s.state(circuit)
			if err != nil {
				return nil, err
			}

			s.mu.Lock()
			result, err := qs.Sample(s.rng, shots, circuit.MeasuredQubits()...)
			s.mu.Unlock()
			if err != nil {
				return nil, err
			}
			results[i] = result
		}
		return results, nil
	}, ResultMeasurement)
}
