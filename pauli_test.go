package mitiq

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPauliString(t *testing.T) {
	Convey("Given a Pauli word", t, func() {
		Convey("Default support places the i-th operator on qubit i", func() {
			p, err := NewPauliString("XZ", 1)
			So(err, ShouldBeNil)
			So(p.Support(), ShouldResemble, []int{0, 1})
			So(p.Key(), ShouldEqual, "X0*Z1")
			So(p.Weight(), ShouldEqual, 2)
		})

		Convey("Identity factors are dropped", func() {
			p := MustPauliString("IXI", 2)
			So(p.Key(), ShouldEqual, "X1")
			So(p.On(0), ShouldEqual, PauliI)
			So(p.String(), ShouldEqual, "2.000*X1")
		})

		Convey("Explicit support is honoured", func() {
			p := MustPauliString("YZ", 1, 4, 2)
			So(p.Support(), ShouldResemble, []int{2, 4})
			So(p.Key(), ShouldEqual, "Z2*Y4")
		})

		Convey("Malformed specs are rejected", func() {
			_, err := NewPauliString("XQ", 1)
			So(errors.Is(err, ErrInvalidPauli), ShouldBeTrue)

			_, err = NewPauliString("XX", 1, 0)
			So(errors.Is(err, ErrInvalidPauli), ShouldBeTrue)

			_, err = NewPauliString("XZ", 1, 3, 3)
			So(errors.Is(err, ErrInvalidPauli), ShouldBeTrue)

			_, err = NewPauliString("X", 1, -1)
			So(errors.Is(err, ErrInvalidPauli), ShouldBeTrue)
		})
	})
}

func TestPauliStringCommutation(t *testing.T) {
	Convey("Given pairs of Pauli strings", t, func() {
		x0 := MustPauliString("X", 1)
		z0 := MustPauliString("Z", 1)
		z1 := MustPauliString("Z", 1, 1)
		xx := MustPauliString("XX", 1)
		zz := MustPauliString("ZZ", 1)
		xz := MustPauliString("XZ", 1)

		Convey("Qubit-wise commutation needs matching operators on shared qubits", func() {
			So(x0.CanBeMeasuredWith(z0), ShouldBeFalse)
			So(x0.CanBeMeasuredWith(z1), ShouldBeTrue)
			So(xz.CanBeMeasuredWith(x0), ShouldBeTrue)
			So(xz.CanBeMeasuredWith(z1), ShouldBeTrue)
		})

		Convey("Full commutation counts anticommuting positions", func() {
			So(xx.Commutes(zz), ShouldBeTrue)
			So(xx.CanBeMeasuredWith(zz), ShouldBeFalse)
			So(x0.Commutes(z0), ShouldBeFalse)
		})
	})
}

func TestPauliStringMul(t *testing.T) {
	Convey("Given Pauli strings to multiply", t, func() {
		Convey("X times Y is iZ", func() {
			p := MustPauliString("X", 1).Mul(MustPauliString("Y", 1))
			So(p.Key(), ShouldEqual, "Z0")
			So(real(p.Coeff()), ShouldAlmostEqual, 0)
			So(imag(p.Coeff()), ShouldAlmostEqual, 1)
		})

		Convey("Y times X is -iZ", func() {
			p := MustPauliString("Y", 1).Mul(MustPauliString("X", 1))
			So(p.Key(), ShouldEqual, "Z0")
			So(imag(p.Coeff()), ShouldAlmostEqual, -1)
		})

		Convey("Equal operators cancel to the identity", func() {
			p := MustPauliString("ZX", 2).Mul(MustPauliString("ZX", 3))
			So(p.Key(), ShouldEqual, "I")
			So(real(p.Coeff()), ShouldAlmostEqual, 6)
		})

		Convey("Disjoint supports concatenate", func() {
			p := MustPauliString("X", 1).Mul(MustPauliString("Z", 1, 2))
			So(p.Key(), ShouldEqual, "X0*Z2")
		})
	})
}

func TestPauliStringMatrix(t *testing.T) {
	Convey("Given a Pauli string", t, func() {
		Convey("Z on one qubit is diag(1, -1)", func() {
			m, err := MustPauliString("Z", 2).Matrix(nil)
			So(err, ShouldBeNil)
			So(real(m.At(0, 0)), ShouldAlmostEqual, 2)
			So(real(m.At(1, 1)), ShouldAlmostEqual, -2)
			So(m.At(0, 1), ShouldEqual, complex128(0))
		})

		Convey("Qubit order picks the tensor factor order", func() {
			p := MustPauliString("X", 1)

			m, err := p.Matrix([]int{0, 1})
			So(err, ShouldBeNil)
			So(real(m.At(0, 2)), ShouldAlmostEqual, 1)
			So(m.At(0, 1), ShouldEqual, complex128(0))

			m, err = p.Matrix([]int{1, 0})
			So(err, ShouldBeNil)
			So(real(m.At(0, 1)), ShouldAlmostEqual, 1)
			So(m.At(0, 2), ShouldEqual, complex128(0))
		})

		Convey("Qubits outside the requested order are an error", func() {
			_, err := MustPauliString("XZ", 1).Matrix([]int{0})
			So(errors.Is(err, ErrInvalidPauli), ShouldBeTrue)
		})
	})
}
