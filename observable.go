package mitiq

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
)

/*
Observable is a weighted sum of Pauli strings whose expectation value is the
quantity being mitigated. Its terms are partitioned into commuting groups,
one measurement setting each.

An Observable is not safe for concurrent Partition calls; estimation and
MeasureIn only read it.
*/
type Observable struct {
	paulis []PauliString
	groups []*CommutingGroup
}

/*
NewObservable merges terms with the same operator structure by summing
their coefficients, drops terms whose sum is numerically zero, and
partitions the result with an unseeded generator. Call Partition with a
seed for a reproducible grouping.
*/
func NewObservable(paulis ...PauliString) *Observable {
	o := &Observable{paulis: combineDuplicates(paulis)}
	o.partition(timeSeeded())
	return o
}

// ObservableFromGroups keeps a caller-supplied grouping as is.
func ObservableFromGroups(groups ...*CommutingGroup) *Observable {
	o := &Observable{groups: append([]*CommutingGroup(nil), groups...)}
	for _, g := range groups {
		o.paulis = append(o.paulis, g.elements...)
	}
	return o
}

func combineDuplicates(paulis []PauliString) []PauliString {
	order := make([]string, 0, len(paulis))
	coeffs := make(map[string]complex128, len(paulis))
	terms := make(map[string]PauliString, len(paulis))

	for _, p := range paulis {
		key := p.Key()
		if _, seen := terms[key]; !seen {
			order = append(order, key)
			terms[key] = p
		}
		coeffs[key] += p.coeff
	}

	out := make([]PauliString, 0, len(order))
	for _, key := range order {
		if isZero(coeffs[key]) {
			continue
		}
		out = append(out, terms[key].WithCoeff(coeffs[key]))
	}
	return out
}

// Paulis returns the deduplicated terms in first-seen order.
func (o *Observable) Paulis() []PauliString {
	return append([]PauliString(nil), o.paulis...)
}

func (o *Observable) NumTerms() int {
	return len(o.paulis)
}

func (o *Observable) Groups() []*CommutingGroup {
	return append([]*CommutingGroup(nil), o.groups...)
}

func (o *Observable) NumGroups() int {
	return len(o.groups)
}

// QubitIndices returns every qubit the observable acts on, ascending.
func (o *Observable) QubitIndices() []int {
	seen := make(map[int]bool)
	for _, p := range o.paulis {
		for q := range p.ops {
			seen[q] = true
		}
	}

	qubits := make([]int, 0, len(seen))
	for q := range seen {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)
	return qubits
}

func (o *Observable) NumQubits() int {
	return len(o.QubitIndices())
}

// Partition regroups the terms deterministically for the given seed.
func (o *Observable) Partition(seed int64) {
	o.partition(rand.New(rand.NewPCG(uint64(seed), 0)))
	log.Printf("Partitioned %d terms into %d groups (seed %d)", len(o.paulis), len(o.groups), seed)
}

// PartitionRandom regroups the terms with a fresh time-seeded generator.
func (o *Observable) PartitionRandom() {
	o.partition(timeSeeded())
	log.Printf("Partitioned %d terms into %d groups", len(o.paulis), len(o.groups))
}

func timeSeeded() *rand.Rand {
	return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
}

/*
partition shuffles the terms, then pops them one at a time into the first
group that accepts them, opening a new group when none does. Greedy first
fit: the group count is not minimal and depends on the shuffle.
*/
func (o *Observable) partition(rng *rand.Rand) {
	paulis := append([]PauliString(nil), o.paulis...)
	rng.Shuffle(len(paulis), func(i, j int) {
		paulis[i], paulis[j] = paulis[j], paulis[i]
	})

	var groups []*CommutingGroup
	for len(paulis) > 0 {
		p := paulis[len(paulis)-1]
		paulis = paulis[:len(paulis)-1]

		placed := false
		for _, g := range groups {
			if g.CanAdd(p) {
				// CanAdd was checked, Add cannot fail.
				_ = g.Add(p)
				placed = true
				break
			}
		}

		if !placed {
			g := &CommutingGroup{bases: make(map[int]Pauli)}
			_ = g.Add(p)
			groups = append(groups, g)
		}
	}

	o.groups = groups
}

// MeasureIn returns one measurement circuit per group, in group order.
func (o *Observable) MeasureIn(circuit *Circuit) []*Circuit {
	circuits := make([]*Circuit, len(o.groups))
	for i, g := range o.groups {
		circuits[i] = g.MeasureIn(circuit)
	}
	return circuits
}

/*
Matrix returns the dense matrix of the observable on qubits (ascending
QubitIndices when nil), of size 2^n x 2^n.
*/
func (o *Observable) Matrix(qubits []int) (*Matrix, error) {
	if qubits == nil {
		qubits = o.QubitIndices()
	}

	dim := 1 << len(qubits)
	out := NewMatrix(dim, dim)
	for _, p := range o.paulis {
		m, err := p.Matrix(qubits)
		if err != nil {
			return nil, err
		}
		if out, err = out.Add(m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// IsHermitian reports whether every coefficient is real within tol.
func (o *Observable) IsHermitian(tol float64) bool {
	for _, p := range o.paulis {
		if imag(p.coeff) > tol || imag(p.coeff) < -tol {
			return false
		}
	}
	return true
}

// Expectation evaluates the observable on one circuit with a one-off
// executor around backend.
func (o *Observable) Expectation(ctx context.Context, circuit *Circuit, backend Backend) (complex128, error) {
	executor, err := NewExecutor(backend)
	if err != nil {
		return 0, err
	}

	values, err := executor.EvaluateComplex(ctx, []*Circuit{circuit}, o)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// expectationFromMeasurements sums the group estimates; measurements[i]
// must come from the i-th circuit of MeasureIn.
func (o *Observable) expectationFromMeasurements(measurements []*MeasurementResult) (complex128, error) {
	if len(measurements) != len(o.groups) {
		return 0, fmt.Errorf(
			"%w: %d measurement results for %d groups", ErrShape, len(measurements), len(o.groups),
		)
	}

	var total complex128
	for i, g := range o.groups {
		value, err := g.expectationFromMeasurements(measurements[i])
		if err != nil {
			return 0, err
		}
		total += value
	}
	return total, nil
}

/*
expectationFromDensityMatrix returns Tr(rho * O). A density matrix over more
qubits than the observable touches is first reduced by tracing out the
qubits the observable does not act on; rho's qubits are taken to be
0..n-1.
*/
func (o *Observable) expectationFromDensityMatrix(rho *DensityMatrix) (complex128, error) {
	n, err := rho.qubits()
	if err != nil {
		return 0, err
	}

	observable, err := o.Matrix(nil)
	if err != nil {
		return 0, err
	}

	state := rho.Matrix
	dim, _ := observable.Dims()
	rows, _ := rho.Dims()

	if rows != dim {
		if n < o.NumQubits() {
			return 0, fmt.Errorf(
				"%w: %d-qubit density matrix for a %d-qubit observable", ErrShape, n, o.NumQubits(),
			)
		}

		if state, err = partialTrace(rho.Matrix, n, o.QubitIndices()); err != nil {
			return 0, err
		}
	}

	product, err := state.Mul(observable)
	if err != nil {
		return 0, err
	}
	return realIfClose(product.Trace()), nil
}

// Scale multiplies every coefficient by c.
func (o *Observable) Scale(c complex128) *Observable {
	paulis := make([]PauliString, len(o.paulis))
	for i, p := range o.paulis {
		paulis[i] = p.Scale(c)
	}
	return NewObservable(paulis...)
}

// MulPauli returns O * p.
func (o *Observable) MulPauli(p PauliString) *Observable {
	paulis := make([]PauliString, len(o.paulis))
	for i, term := range o.paulis {
		paulis[i] = term.Mul(p)
	}
	return NewObservable(paulis...)
}

// PreMulPauli returns p * O. Pauli products do not commute, so this differs
// from MulPauli by the phases of every anticommuting pair.
func (o *Observable) PreMulPauli(p PauliString) *Observable {
	paulis := make([]PauliString, len(o.paulis))
	for i, term := range o.paulis {
		paulis[i] = p.Mul(term)
	}
	return NewObservable(paulis...)
}

// Mul returns the product of two observables, all term pairs expanded.
func (o *Observable) Mul(other *Observable) *Observable {
	paulis := make([]PauliString, 0, len(o.paulis)*len(other.paulis))
	for _, a := range o.paulis {
		for _, b := range other.paulis {
			paulis = append(paulis, a.Mul(b))
		}
	}
	return NewObservable(paulis...)
}

/*
Equal compares the dense matrices of both observables over the union of
their qubits. The cost is exponential in the number of qubits; use it for
tests and small systems.
*/
func (o *Observable) Equal(other *Observable) bool {
	seen := make(map[int]bool)
	for _, q := range append(o.QubitIndices(), other.QubitIndices()...) {
		seen[q] = true
	}

	qubits := make([]int, 0, len(seen))
	for q := range seen {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)

	a, err := o.Matrix(qubits)
	if err != nil {
		return false
	}
	b, err := other.Matrix(qubits)
	if err != nil {
		return false
	}
	return a.AllClose(b, 1e-5, 1e-8)
}

func (o *Observable) String() string {
	parts := make([]string, len(o.paulis))
	for i, p := range o.paulis {
		parts[i] = p.String()
	}
	return strings.Join(parts, " + ")
}

// GoString dumps the term list and grouping for debugging.
func (o *Observable) GoString() string {
	keys := make([][]string, len(o.groups))
	for i, g := range o.groups {
		for _, p := range g.elements {
			keys[i] = append(keys[i], p.String())
		}
	}
	return spew.Sprintf("Observable{terms: %v, groups: %v}", o.String(), keys)
}
