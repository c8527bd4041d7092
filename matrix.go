package mitiq

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
)

/*
Matrix is a dense, row-major complex matrix. Observables and density
matrices are small enough (2^n for a handful of qubits) that a flat
slice is all that is needed.
*/
type Matrix struct {
	rows int
	cols int
	data []complex128
}

// NewMatrix returns a zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]complex128, rows*cols),
	}
}

// NewMatrixFrom copies data (row-major) into a new matrix.
func NewMatrixFrom(rows, cols int, data []complex128) (*Matrix, error) {
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for a %dx%d matrix", ErrShape, len(data), rows, cols)
	}

	m := NewMatrix(rows, cols)
	copy(m.data, data)
	return m, nil
}

// Identity returns the n x n identity.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

func (m *Matrix) Dims() (int, int) {
	return m.rows, m.cols
}

func (m *Matrix) At(i, j int) complex128 {
	return m.data[i*m.cols+j]
}

func (m *Matrix) Set(i, j int, v complex128) {
	m.data[i*m.cols+j] = v
}

// Add returns m + o.
func (m *Matrix) Add(o *Matrix) (*Matrix, error) {
	if m.rows != o.rows || m.cols != o.cols {
		return nil, fmt.Errorf("%w: cannot add %dx%d and %dx%d", ErrShape, m.rows, m.cols, o.rows, o.cols)
	}

	out := NewMatrix(m.rows, m.cols)
	for i := range m.data {
		out.data[i] = m.data[i] + o.data[i]
	}
	return out, nil
}

// Scale returns c * m.
func (m *Matrix) Scale(c complex128) *Matrix {
	out := NewMatrix(m.rows, m.cols)
	for i, v := range m.data {
		out.data[i] = c * v
	}
	return out
}

// Mul returns the matrix product m * o.
func (m *Matrix) Mul(o *Matrix) (*Matrix, error) {
	if m.cols != o.rows {
		return nil, fmt.Errorf("%w: cannot multiply %dx%d by %dx%d", ErrShape, m.rows, m.cols, o.rows, o.cols)
	}

	out := NewMatrix(m.rows, o.cols)
	for i := 0; i < m.rows; i++ {
		for k := 0; k < m.cols; k++ {
			a := m.data[i*m.cols+k]
			if a == 0 {
				continue
			}
			for j := 0; j < o.cols; j++ {
				out.data[i*o.cols+j] += a * o.data[k*o.cols+j]
			}
		}
	}
	return out, nil
}

// Kron returns the Kronecker product m ⊗ o.
func (m *Matrix) Kron(o *Matrix) *Matrix {
	out := NewMatrix(m.rows*o.rows, m.cols*o.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			a := m.data[i*m.cols+j]
			if a == 0 {
				continue
			}
			for k := 0; k < o.rows; k++ {
				for l := 0; l < o.cols; l++ {
					out.data[(i*o.rows+k)*out.cols+j*o.cols+l] = a * o.data[k*o.cols+l]
				}
			}
		}
	}
	return out
}

func (m *Matrix) Trace() complex128 {
	var t complex128
	for i := 0; i < m.rows && i < m.cols; i++ {
		t += m.data[i*m.cols+i]
	}
	return t
}

// ConjTranspose returns the Hermitian adjoint of m.
func (m *Matrix) ConjTranspose() *Matrix {
	out := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*m.rows+i] = cmplx.Conj(m.data[i*m.cols+j])
		}
	}
	return out
}

// AllClose reports element-wise closeness within atol + rtol*|o|.
func (m *Matrix) AllClose(o *Matrix, rtol, atol float64) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}

	for i := range m.data {
		if cmplx.Abs(m.data[i]-o.data[i]) > atol+rtol*cmplx.Abs(o.data[i]) {
			return false
		}
	}
	return true
}

// IsHermitian reports whether m equals its adjoint within tol.
func (m *Matrix) IsHermitian(tol float64) bool {
	if m.rows != m.cols {
		return false
	}
	return m.AllClose(m.ConjTranspose(), 0, tol)
}

// numQubitsForDim returns n for a 2^n dimension, or an error.
func numQubitsForDim(dim int) (int, error) {
	if dim <= 0 || dim&(dim-1) != 0 {
		return 0, fmt.Errorf("%w: dimension %d is not a power of two", ErrShape, dim)
	}
	return bits.TrailingZeros(uint(dim)), nil
}

/*
partialTrace traces out every qubit of rho (an nqubits-qubit operator, qubit
0 most significant) except those listed in keep. The kept qubits stay in
ascending order in the result.
*/
func partialTrace(rho *Matrix, nqubits int, keep []int) (*Matrix, error) {
	if rho.rows != rho.cols || rho.rows != 1<<nqubits {
		return nil, fmt.Errorf("%w: %dx%d is not a %d-qubit operator", ErrShape, rho.rows, rho.cols, nqubits)
	}

	kept := make(map[int]bool, len(keep))
	for _, q := range keep {
		if q < 0 || q >= nqubits {
			return nil, fmt.Errorf("%w: qubit %d outside a %d-qubit operator", ErrShape, q, nqubits)
		}
		kept[q] = true
	}

	var keepQubits, traceQubits []int
	for q := 0; q < nqubits; q++ {
		if kept[q] {
			keepQubits = append(keepQubits, q)
		} else {
			traceQubits = append(traceQubits, q)
		}
	}

	compose := func(keepBits, traceBits int) int {
		idx := 0
		for i, q := range keepQubits {
			if keepBits>>(len(keepQubits)-1-i)&1 == 1 {
				idx |= 1 << (nqubits - 1 - q)
			}
		}
		for i, q := range traceQubits {
			if traceBits>>(len(traceQubits)-1-i)&1 == 1 {
				idx |= 1 << (nqubits - 1 - q)
			}
		}
		return idx
	}

	dim := 1 << len(keepQubits)
	env := 1 << len(traceQubits)
	out := NewMatrix(dim, dim)

	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			var sum complex128
			for t := 0; t < env; t++ {
				sum += rho.At(compose(a, t), compose(b, t))
			}
			out.data[a*dim+b] = sum
		}
	}

	return out, nil
}

// realIfClose drops an imaginary part within 100 machine epsilons of zero.
func realIfClose(v complex128) complex128 {
	if math.Abs(imag(v)) <= 100*2.220446049250313e-16 {
		return complex(real(v), 0)
	}
	return v
}
