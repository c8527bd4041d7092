package mitiq

import (
	"fmt"
	"math/cmplx"
	"sort"
	"strconv"
	"strings"
)

// Pauli is a single-qubit Pauli operator.
type Pauli byte

const (
	PauliI Pauli = 'I'
	PauliX Pauli = 'X'
	PauliY Pauli = 'Y'
	PauliZ Pauli = 'Z'
)

func (p Pauli) String() string {
	return string(rune(p))
}

func (p Pauli) valid() bool {
	switch p {
	case PauliI, PauliX, PauliY, PauliZ:
		return true
	}
	return false
}

// matrix returns the 2x2 matrix of p.
func (p Pauli) matrix() *Matrix {
	m := NewMatrix(2, 2)
	switch p {
	case PauliX:
		m.Set(0, 1, 1)
		m.Set(1, 0, 1)
	case PauliY:
		m.Set(0, 1, -1i)
		m.Set(1, 0, 1i)
	case PauliZ:
		m.Set(0, 0, 1)
		m.Set(1, 1, -1)
	default:
		m.Set(0, 0, 1)
		m.Set(1, 1, 1)
	}
	return m
}

// Cyclic order X -> Y -> Z gives +i, anti-cyclic gives -i.
var cyclicNext = map[Pauli]Pauli{PauliX: PauliY, PauliY: PauliZ, PauliZ: PauliX}

// mulPauli returns the phase and operator of a*b.
func mulPauli(a, b Pauli) (complex128, Pauli) {
	switch {
	case a == PauliI:
		return 1, b
	case b == PauliI:
		return 1, a
	case a == b:
		return 1, PauliI
	}

	third := PauliX ^ PauliY ^ PauliZ ^ a ^ b
	if cyclicNext[a] == b {
		return 1i, third
	}
	return -1i, third
}

/*
PauliString is a weighted tensor product of single-qubit Pauli operators.
Identity factors are implicit. Values are immutable: every operation that
would change a PauliString returns a new one.
*/
type PauliString struct {
	ops   map[int]Pauli
	coeff complex128
}

/*
NewPauliString builds a PauliString from a word such as "XZY" acting on the
given support qubits. Without support, the i-th character acts on qubit i.
Identity characters are accepted and dropped.
*/
func NewPauliString(word string, coeff complex128, support ...int) (PauliString, error) {
	if len(support) == 0 {
		support = make([]int, len(word))
		for i := range support {
			support[i] = i
		}
	}

	if len(support) != len(word) {
		return PauliString{}, fmt.Errorf(
			"%w: %q has %d operators but %d support qubits", ErrInvalidPauli, word, len(word), len(support),
		)
	}

	ops := make(map[int]Pauli, len(word))
	for i, r := range []byte(strings.ToUpper(word)) {
		p := Pauli(r)
		if !p.valid() {
			return PauliString{}, fmt.Errorf("%w: unknown operator %q in %q", ErrInvalidPauli, r, word)
		}

		q := support[i]
		if q < 0 {
			return PauliString{}, fmt.Errorf("%w: negative qubit index %d", ErrInvalidPauli, q)
		}
		if _, dup := ops[q]; dup {
			return PauliString{}, fmt.Errorf("%w: qubit %d appears twice in %q", ErrInvalidPauli, q, word)
		}

		if p != PauliI {
			ops[q] = p
		}
	}

	return PauliString{ops: ops, coeff: coeff}, nil
}

// MustPauliString is NewPauliString for literals known to be valid.
func MustPauliString(word string, coeff complex128, support ...int) PauliString {
	p, err := NewPauliString(word, coeff, support...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p PauliString) Coeff() complex128 {
	return p.coeff
}

// WithCoeff returns the same operator with a new coefficient.
func (p PauliString) WithCoeff(coeff complex128) PauliString {
	return PauliString{ops: p.ops, coeff: coeff}
}

// Scale multiplies the coefficient by c.
func (p PauliString) Scale(c complex128) PauliString {
	return p.WithCoeff(p.coeff * c)
}

// Support returns the qubits acted on non-trivially, ascending.
func (p PauliString) Support() []int {
	qubits := make([]int, 0, len(p.ops))
	for q := range p.ops {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)
	return qubits
}

// On returns the operator acting on qubit q.
func (p PauliString) On(q int) Pauli {
	if op, ok := p.ops[q]; ok {
		return op
	}
	return PauliI
}

// Weight is the number of non-identity factors.
func (p PauliString) Weight() int {
	return len(p.ops)
}

// Key is the coefficient-free canonical form, e.g. "X0*Z3". Two strings
// with the same key are the same term.
func (p PauliString) Key() string {
	support := p.Support()
	if len(support) == 0 {
		return "I"
	}

	parts := make([]string, len(support))
	for i, q := range support {
		parts[i] = p.ops[q].String() + strconv.Itoa(q)
	}
	return strings.Join(parts, "*")
}

func (p PauliString) String() string {
	return formatCoeff(p.coeff) + "*" + p.Key()
}

func formatCoeff(c complex128) string {
	if imag(c) == 0 {
		return strconv.FormatFloat(real(c), 'f', 3, 64)
	}
	return fmt.Sprintf("(%.3f%+.3fi)", real(c), imag(c))
}

// Equal compares operator structure and coefficient exactly.
func (p PauliString) Equal(other PauliString) bool {
	return p.coeff == other.coeff && p.Key() == other.Key()
}

/*
CanBeMeasuredWith reports qubit-wise commutation: on every shared qubit both
strings act with the same operator. This is the rule commuting groups are
built with, since such strings share one measurement basis.
*/
func (p PauliString) CanBeMeasuredWith(other PauliString) bool {
	small, large := p.ops, other.ops
	if len(small) > len(large) {
		small, large = large, small
	}

	for q, op := range small {
		if o, ok := large[q]; ok && o != op {
			return false
		}
	}
	return true
}

// Commutes reports full operator commutation: the strings anticommute on
// an even number of qubits.
func (p PauliString) Commutes(other PauliString) bool {
	anti := 0
	for q, op := range p.ops {
		if o, ok := other.ops[q]; ok && o != op {
			anti++
		}
	}
	return anti%2 == 0
}

// Mul returns the operator product p*other.
func (p PauliString) Mul(other PauliString) PauliString {
	coeff := p.coeff * other.coeff
	ops := make(map[int]Pauli, len(p.ops)+len(other.ops))

	for q, op := range p.ops {
		ops[q] = op
	}
	for q, op := range other.ops {
		phase, prod := mulPauli(ops[q].orIdentity(), op)
		coeff *= phase
		if prod == PauliI {
			delete(ops, q)
			continue
		}
		ops[q] = prod
	}

	return PauliString{ops: ops, coeff: coeff}
}

func (p Pauli) orIdentity() Pauli {
	if p == 0 {
		return PauliI
	}
	return p
}

/*
Matrix returns the dense matrix of p on the given qubits, the first qubit
being the most significant tensor factor. Every qubit of the support must
appear in qubits.
*/
func (p PauliString) Matrix(qubits []int) (*Matrix, error) {
	if qubits == nil {
		qubits = p.Support()
	}

	listed := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		listed[q] = true
	}
	for q := range p.ops {
		if !listed[q] {
			return nil, fmt.Errorf("%w: qubit %d of %s is not in %v", ErrInvalidPauli, q, p.Key(), qubits)
		}
	}

	m := Identity(1).Scale(p.coeff)
	for _, q := range qubits {
		m = m.Kron(p.On(q).matrix())
	}
	return m, nil
}

// isZero reports whether a merged coefficient is numerically zero.
func isZero(c complex128) bool {
	return cmplx.Abs(c) <= 1e-8
}
