package mitiq

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

// Gate names understood by basis rotations and the reference simulator.
const (
	GateH       = "H"
	GateX       = "X"
	GateY       = "Y"
	GateZ       = "Z"
	GateS       = "S"
	GateSdg     = "SDG"
	GateRX      = "RX"
	GateRY      = "RY"
	GateRZ      = "RZ"
	GateCNOT    = "CNOT"
	GateCZ      = "CZ"
	GateMeasure = "M"
)

// Gate is one instruction of a Circuit.
type Gate struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

func H(q int) Gate   { return Gate{Name: GateH, Qubits: []int{q}} }
func X(q int) Gate   { return Gate{Name: GateX, Qubits: []int{q}} }
func Y(q int) Gate   { return Gate{Name: GateY, Qubits: []int{q}} }
func Z(q int) Gate   { return Gate{Name: GateZ, Qubits: []int{q}} }
func S(q int) Gate   { return Gate{Name: GateS, Qubits: []int{q}} }
func Sdg(q int) Gate { return Gate{Name: GateSdg, Qubits: []int{q}} }

func RX(q int, theta float64) Gate {
	return Gate{Name: GateRX, Qubits: []int{q}, Params: []float64{theta}}
}

func RY(q int, theta float64) Gate {
	return Gate{Name: GateRY, Qubits: []int{q}, Params: []float64{theta}}
}

func RZ(q int, theta float64) Gate {
	return Gate{Name: GateRZ, Qubits: []int{q}, Params: []float64{theta}}
}

func CNOT(control, target int) Gate { return Gate{Name: GateCNOT, Qubits: []int{control, target}} }
func CZ(a, b int) Gate              { return Gate{Name: GateCZ, Qubits: []int{a, b}} }

// Measure measures the given qubits; the listed order is the bit order of
// the resulting bitstrings.
func Measure(qubits ...int) Gate {
	return Gate{Name: GateMeasure, Qubits: append([]int(nil), qubits...)}
}

/*
Circuit is the program representation handed to backends. The executor
never looks inside a circuit except through a Canonicalizer, and
observables only append basis rotations and measurements to copies.
Backends translating to a device format own that conversion.
*/
type Circuit struct {
	Gates    []Gate            `json:"gates"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func NewCircuit(gates ...Gate) *Circuit {
	return &Circuit{Gates: append([]Gate(nil), gates...)}
}

// Append adds gates in place and returns the circuit.
func (c *Circuit) Append(gates ...Gate) *Circuit {
	c.Gates = append(c.Gates, gates...)
	return c
}

// Copy returns a deep copy.
func (c *Circuit) Copy() *Circuit {
	out := &Circuit{Gates: make([]Gate, len(c.Gates))}
	for i, g := range c.Gates {
		out.Gates[i] = Gate{
			Name:   g.Name,
			Qubits: append([]int(nil), g.Qubits...),
			Params: append([]float64(nil), g.Params...),
		}
	}

	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Qubits returns every qubit touched by the circuit, ascending.
func (c *Circuit) Qubits() []int {
	seen := make(map[int]bool)
	for _, g := range c.Gates {
		for _, q := range g.Qubits {
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

// NumQubits is one more than the largest qubit index used.
func (c *Circuit) NumQubits() int {
	qubits := c.Qubits()
	if len(qubits) == 0 {
		return 0
	}
	return qubits[len(qubits)-1] + 1
}

// MeasuredQubits returns the qubits of all measurement gates in order.
func (c *Circuit) MeasuredQubits() []int {
	var qubits []int
	for _, g := range c.Gates {
		if g.Name == GateMeasure {
			qubits = append(qubits, g.Qubits...)
		}
	}
	return qubits
}

/*
Canonicalizer maps a circuit to a key used to detect structurally identical
circuits when deduplicating a run. Two circuits that a backend could treat
differently must never share a key: a canonicalizer that drops structure
(classical register layout, device-specific annotations) makes the executor
reuse one circuit's result for another.
*/
type Canonicalizer func(*Circuit) (string, error)

var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// CanonicalKey is the default Canonicalizer: a SHA-256 digest of the
// circuit's JSON encoding, gates and metadata included.
func CanonicalKey(c *Circuit) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: nil circuit", ErrConfiguration)
	}

	buf, err := canonicalJSON.Marshal(c)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}
