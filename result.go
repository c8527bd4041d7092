package mitiq

import (
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// ResultType is the kind of QuantumResult a backend declares it returns.
type ResultType int

const (
	// ResultUnspecified is a serial backend that declared nothing. It is
	// treated as returning Scalar.
	ResultUnspecified ResultType = iota
	ResultScalar
	ResultDensityMatrix
	ResultMeasurement
)

func (t ResultType) String() string {
	switch t {
	case ResultUnspecified:
		return "unspecified"
	case ResultScalar:
		return "scalar"
	case ResultDensityMatrix:
		return "density_matrix"
	case ResultMeasurement:
		return "measurement"
	}
	return fmt.Sprintf("ResultType(%d)", int(t))
}

// QuantumResult is the raw output of one circuit execution: a Scalar, a
// *DensityMatrix or a *MeasurementResult.
type QuantumResult interface {
	ResultType() ResultType
}

// Scalar is an expectation value already computed by the backend.
type Scalar float64

func (Scalar) ResultType() ResultType { return ResultScalar }

// DensityMatrix is the full state of an n-qubit register, qubit 0 being
// the most significant tensor factor. The qubit count follows from the
// matrix dimension, so backends may build one as a struct literal.
type DensityMatrix struct {
	*Matrix
}

// NewDensityMatrix wraps a square 2^n x 2^n matrix.
func NewDensityMatrix(m *Matrix) (*DensityMatrix, error) {
	d := &DensityMatrix{Matrix: m}
	if _, err := d.qubits(); err != nil {
		return nil, err
	}
	return d, nil
}

func (*DensityMatrix) ResultType() ResultType { return ResultDensityMatrix }

// NumQubits is n for a 2^n x 2^n matrix, 0 for anything else.
func (d *DensityMatrix) NumQubits() int {
	n, _ := d.qubits()
	return n
}

func (d *DensityMatrix) qubits() (int, error) {
	if d.Matrix == nil {
		return 0, fmt.Errorf("%w: density matrix has no data", ErrShape)
	}

	rows, cols := d.Dims()
	if rows != cols {
		return 0, fmt.Errorf("%w: density matrix is %dx%d", ErrShape, rows, cols)
	}
	return numQubitsForDim(rows)
}

/*
MeasurementResult holds sampled bitstrings as counts. Character i of every
bitstring is the outcome of qubit Qubits[i].
*/
type MeasurementResult struct {
	Qubits []int          `json:"qubit_indices"`
	Counts map[string]int `json:"counts"`
}

func (*MeasurementResult) ResultType() ResultType { return ResultMeasurement }

/*
NewMeasurementResult builds a result from per-shot bit rows. Without
qubits, column i is qubit i.
*/
func NewMeasurementResult(bitstrings [][]int, qubits ...int) (*MeasurementResult, error) {
	if len(qubits) == 0 && len(bitstrings) > 0 {
		qubits = make([]int, len(bitstrings[0]))
		for i := range qubits {
			qubits[i] = i
		}
	}

	m := &MeasurementResult{
		Qubits: append([]int(nil), qubits...),
		Counts: make(map[string]int),
	}

	var sb strings.Builder
	for shot, row := range bitstrings {
		if len(row) != len(qubits) {
			return nil, fmt.Errorf("%w: shot %d has %d bits for %d qubits", ErrShape, shot, len(row), len(qubits))
		}

		sb.Reset()
		for _, b := range row {
			switch b {
			case 0:
				sb.WriteByte('0')
			case 1:
				sb.WriteByte('1')
			default:
				return nil, fmt.Errorf("%w: shot %d has bit value %d", ErrShape, shot, b)
			}
		}
		m.Counts[sb.String()]++
	}

	return m, nil
}

// ParseMeasurementResult decodes the JSON form {"qubit_indices": [...],
// "counts": {"01": 12, ...}} and validates every bitstring.
func ParseMeasurementResult(data []byte) (*MeasurementResult, error) {
	var m MeasurementResult
	if err := jsoniter.ConfigFastest.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode measurement result: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *MeasurementResult) validate() error {
	for bitstring, count := range m.Counts {
		if len(bitstring) != len(m.Qubits) {
			return fmt.Errorf("%w: bitstring %q for %d qubits", ErrShape, bitstring, len(m.Qubits))
		}
		if strings.Trim(bitstring, "01") != "" {
			return fmt.Errorf("%w: bitstring %q is not binary", ErrShape, bitstring)
		}
		if count < 0 {
			return fmt.Errorf("%w: negative count for %q", ErrShape, bitstring)
		}
	}
	return nil
}

// Shots is the total number of samples.
func (m *MeasurementResult) Shots() int {
	total := 0
	for _, c := range m.Counts {
		total += c
	}
	return total
}

// Filter keeps only the columns of the given qubits, in the given order.
func (m *MeasurementResult) Filter(qubits ...int) (*MeasurementResult, error) {
	positions, err := m.positions(qubits)
	if err != nil {
		return nil, err
	}

	out := &MeasurementResult{
		Qubits: append([]int(nil), qubits...),
		Counts: make(map[string]int, len(m.Counts)),
	}

	buf := make([]byte, len(positions))
	for bitstring, count := range m.Counts {
		for i, p := range positions {
			buf[i] = bitstring[p]
		}
		out.Counts[string(buf)] += count
	}
	return out, nil
}

// Bitstrings returns the distinct outcomes in lexical order.
func (m *MeasurementResult) Bitstrings() []string {
	keys := make([]string, 0, len(m.Counts))
	for k := range m.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MeasurementResult) positions(qubits []int) ([]int, error) {
	index := make(map[int]int, len(m.Qubits))
	for i, q := range m.Qubits {
		index[q] = i
	}

	positions := make([]int, len(qubits))
	for i, q := range qubits {
		p, ok := index[q]
		if !ok {
			return nil, fmt.Errorf("%w: qubit %d was not measured (measured %v)", ErrShape, q, m.Qubits)
		}
		positions[i] = p
	}
	return positions, nil
}

// parityExpectation averages (-1)^(sum of bits on qubits) over all shots.
func (m *MeasurementResult) parityExpectation(qubits []int) (float64, error) {
	positions, err := m.positions(qubits)
	if err != nil {
		return 0, err
	}

	shots := m.Shots()
	if shots == 0 {
		return 0, fmt.Errorf("%w: measurement result has no shots", ErrShape)
	}

	total := 0
	for bitstring, count := range m.Counts {
		ones := 0
		for _, p := range positions {
			if bitstring[p] == '1' {
				ones++
			}
		}
		if ones%2 == 0 {
			total += count
		} else {
			total -= count
		}
	}
	return float64(total) / float64(shots), nil
}
