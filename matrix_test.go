package mitiq

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMatrix(t *testing.T) {
	Convey("Given small matrices", t, func() {
		a, _ := NewMatrixFrom(2, 2, []complex128{1, 2, 3, 4})
		b, _ := NewMatrixFrom(2, 2, []complex128{0, 1, 1, 0})

		Convey("Mul follows the usual product", func() {
			m, err := a.Mul(b)
			So(err, ShouldBeNil)
			want, _ := NewMatrixFrom(2, 2, []complex128{2, 1, 4, 3})
			So(m.AllClose(want, 0, 0), ShouldBeTrue)
		})

		Convey("Kron puts the left factor outermost", func() {
			m := b.Kron(Identity(2))
			rows, cols := m.Dims()
			So(rows, ShouldEqual, 4)
			So(cols, ShouldEqual, 4)
			So(m.At(0, 2), ShouldEqual, complex128(1))
			So(m.At(0, 1), ShouldEqual, complex128(0))
		})

		Convey("Trace sums the diagonal", func() {
			So(a.Trace(), ShouldEqual, complex128(5))
		})

		Convey("Hermitian checks use the adjoint", func() {
			y, _ := NewMatrixFrom(2, 2, []complex128{0, -1i, 1i, 0})
			So(y.IsHermitian(1e-12), ShouldBeTrue)
			So(a.IsHermitian(1e-12), ShouldBeFalse)
		})

		Convey("Mismatched shapes are errors", func() {
			_, err := NewMatrixFrom(2, 2, []complex128{1})
			So(errors.Is(err, ErrShape), ShouldBeTrue)

			_, err = a.Add(Identity(3))
			So(errors.Is(err, ErrShape), ShouldBeTrue)

			_, err = a.Mul(NewMatrix(3, 1))
			So(errors.Is(err, ErrShape), ShouldBeTrue)
		})
	})
}

func TestPartialTrace(t *testing.T) {
	Convey("Given a Bell state", t, func() {
		qs := NewQuantumState(2)
		So(qs.Run(NewCircuit(H(0), CNOT(0, 1))), ShouldBeNil)
		rho := qs.DensityMatrix()

		Convey("Either half is maximally mixed", func() {
			mixed := Identity(2).Scale(0.5)

			reduced, err := partialTrace(rho.Matrix, 2, []int{0})
			So(err, ShouldBeNil)
			So(reduced.AllClose(mixed, 0, 1e-12), ShouldBeTrue)

			reduced, err = partialTrace(rho.Matrix, 2, []int{1})
			So(err, ShouldBeNil)
			So(reduced.AllClose(mixed, 0, 1e-12), ShouldBeTrue)
		})

		Convey("Keeping everything is the identity map", func() {
			reduced, err := partialTrace(rho.Matrix, 2, []int{0, 1})
			So(err, ShouldBeNil)
			So(reduced.AllClose(rho.Matrix, 0, 0), ShouldBeTrue)
		})

		Convey("Out-of-range qubits are shape errors", func() {
			_, err := partialTrace(rho.Matrix, 2, []int{2})
			So(errors.Is(err, ErrShape), ShouldBeTrue)
		})
	})

	Convey("Given a product state", t, func() {
		qs := NewQuantumState(3)
		So(qs.Run(NewCircuit(X(1))), ShouldBeNil)

		reduced, err := partialTrace(qs.DensityMatrix().Matrix, 3, []int{1})
		So(err, ShouldBeNil)
		So(real(reduced.At(1, 1)), ShouldAlmostEqual, 1.0)
		So(real(reduced.At(0, 0)), ShouldAlmostEqual, 0.0)
	})
}

func TestMatrixHelpers(t *testing.T) {
	Convey("Given dimensions", t, func() {
		n, err := numQubitsForDim(8)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 3)

		_, err = numQubitsForDim(6)
		So(errors.Is(err, ErrShape), ShouldBeTrue)

		_, err = NewDensityMatrix(NewMatrix(3, 3))
		So(errors.Is(err, ErrShape), ShouldBeTrue)

		_, err = NewDensityMatrix(NewMatrix(2, 4))
		So(errors.Is(err, ErrShape), ShouldBeTrue)
	})

	Convey("Given nearly real values", t, func() {
		So(realIfClose(complex(1, 1e-17)), ShouldEqual, complex128(1))
		So(imag(realIfClose(complex(1, 1e-3))), ShouldEqual, 1e-3)
	})
}
