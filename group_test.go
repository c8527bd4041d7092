package mitiq

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCommutingGroup(t *testing.T) {
	Convey("Given a commuting group", t, func() {
		g, err := NewCommutingGroup(
			MustPauliString("XZ", 1),
			MustPauliString("X", 0.5),
		)
		So(err, ShouldBeNil)
		So(g.Len(), ShouldEqual, 2)
		So(g.Support(), ShouldResemble, []int{0, 1})

		Convey("It accepts strings sharing its bases", func() {
			So(g.CanAdd(MustPauliString("Z", 1, 1)), ShouldBeTrue)
			So(g.CanAdd(MustPauliString("Y", 1, 2)), ShouldBeTrue)
		})

		Convey("It rejects strings that break qubit-wise commutation", func() {
			p := MustPauliString("Z", 1)
			So(g.CanAdd(p), ShouldBeFalse)
			So(errors.Is(g.Add(p), ErrNotCommuting), ShouldBeTrue)
			So(g.Len(), ShouldEqual, 2)
		})

		Convey("MeasureIn appends rotations and a measurement to a copy", func() {
			circuit := NewCircuit(H(0), CNOT(0, 1))
			So(g.Add(MustPauliString("Y", 1, 2)), ShouldBeNil)

			measured := g.MeasureIn(circuit)
			So(circuit.Gates, ShouldHaveLength, 2)
			So(measured.Gates, ShouldResemble, []Gate{
				H(0), CNOT(0, 1),
				H(0),
				Sdg(2), H(2),
				Measure(0, 1, 2),
			})
		})
	})

	Convey("Given a group built from non-commuting strings", t, func() {
		_, err := NewCommutingGroup(MustPauliString("X", 1), MustPauliString("Z", 1))
		So(errors.Is(err, ErrNotCommuting), ShouldBeTrue)
	})
}

func TestCommutingGroupEstimator(t *testing.T) {
	Convey("Given perfectly correlated outcomes on two qubits", t, func() {
		m := &MeasurementResult{
			Qubits: []int{0, 1},
			Counts: map[string]int{"00": 50, "11": 50},
		}

		Convey("ZZ parity is always even", func() {
			g, _ := NewCommutingGroup(MustPauliString("ZZ", 2))
			value, err := g.expectationFromMeasurements(m)
			So(err, ShouldBeNil)
			So(real(value), ShouldAlmostEqual, 2)
		})

		Convey("Single-qubit Z averages out", func() {
			g, _ := NewCommutingGroup(MustPauliString("Z", 1), MustPauliString("Z", 3, 1))
			value, err := g.expectationFromMeasurements(m)
			So(err, ShouldBeNil)
			So(real(value), ShouldAlmostEqual, 0)
		})

		Convey("The identity contributes its coefficient", func() {
			g, _ := NewCommutingGroup(MustPauliString("", 0.25))
			value, err := g.expectationFromMeasurements(m)
			So(err, ShouldBeNil)
			So(real(value), ShouldAlmostEqual, 0.25)
		})

		Convey("Unmeasured qubits are a shape error", func() {
			g, _ := NewCommutingGroup(MustPauliString("Z", 1, 5))
			_, err := g.expectationFromMeasurements(m)
			So(errors.Is(err, ErrShape), ShouldBeTrue)
		})
	})
}
