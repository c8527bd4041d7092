package mitiq

import (
	"fmt"
	"sort"
	"strings"
)

/*
CommutingGroup is a set of Pauli strings that pairwise commute qubit by
qubit, so one basis rotation followed by one measurement estimates all of
them from the same samples.
*/
type CommutingGroup struct {
	elements []PauliString
	bases    map[int]Pauli
}

// NewCommutingGroup builds a group, failing if any pair cannot be measured
// together.
func NewCommutingGroup(paulis ...PauliString) (*CommutingGroup, error) {
	g := &CommutingGroup{bases: make(map[int]Pauli)}
	for _, p := range paulis {
		if err := g.Add(p); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// CanAdd reports whether p can join without breaking qubit-wise commutation.
func (g *CommutingGroup) CanAdd(p PauliString) bool {
	for q, op := range p.ops {
		if basis, ok := g.bases[q]; ok && basis != op {
			return false
		}
	}
	return true
}

func (g *CommutingGroup) Add(p PauliString) error {
	if !g.CanAdd(p) {
		return fmt.Errorf("%w: %s", ErrNotCommuting, p)
	}

	if g.bases == nil {
		g.bases = make(map[int]Pauli)
	}
	for q, op := range p.ops {
		g.bases[q] = op
	}
	g.elements = append(g.elements, p)
	return nil
}

// Elements returns the members in insertion order.
func (g *CommutingGroup) Elements() []PauliString {
	return append([]PauliString(nil), g.elements...)
}

func (g *CommutingGroup) Len() int {
	return len(g.elements)
}

// Support returns every qubit measured by the group, ascending.
func (g *CommutingGroup) Support() []int {
	qubits := make([]int, 0, len(g.bases))
	for q := range g.bases {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)
	return qubits
}

/*
MeasureIn returns a copy of circuit with the group's basis rotations
appended (H for X, S† then H for Y, nothing for Z) followed by one
measurement of the support in ascending qubit order. That order is the bit
order the group's estimator reads back.
*/
func (g *CommutingGroup) MeasureIn(circuit *Circuit) *Circuit {
	out := circuit.Copy()
	support := g.Support()

	for _, q := range support {
		switch g.bases[q] {
		case PauliX:
			out.Append(H(q))
		case PauliY:
			out.Append(Sdg(q), H(q))
		}
	}

	if len(support) > 0 {
		out.Append(Measure(support...))
	}
	return out
}

// expectationFromMeasurements sums coeff * <(-1)^parity> over members.
func (g *CommutingGroup) expectationFromMeasurements(m *MeasurementResult) (complex128, error) {
	var total complex128
	for _, p := range g.elements {
		value, err := m.parityExpectation(p.Support())
		if err != nil {
			return 0, fmt.Errorf("estimate %s: %w", p.Key(), err)
		}
		total += p.coeff * complex(value, 0)
	}
	return total, nil
}

func (g *CommutingGroup) String() string {
	parts := make([]string, len(g.elements))
	for i, p := range g.elements {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
