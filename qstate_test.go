package mitiq

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestQuantumState(t *testing.T) {
	Convey("Given a fresh single qubit", t, func() {
		qs := NewQuantumState(1)
		So(qs.Probabilities(), ShouldResemble, []float64{1, 0})

		Convey("H makes an even superposition", func() {
			So(qs.Apply(H(0)), ShouldBeNil)
			probs := qs.Probabilities()
			So(probs[0], ShouldAlmostEqual, 0.5)
			So(probs[1], ShouldAlmostEqual, 0.5)
		})

		Convey("RX(pi) flips the qubit", func() {
			So(qs.Apply(RX(0, math.Pi)), ShouldBeNil)
			So(qs.Probabilities()[1], ShouldAlmostEqual, 1.0)
		})

		Convey("S then Sdg is the identity", func() {
			So(qs.Run(NewCircuit(H(0), S(0), Sdg(0), H(0))), ShouldBeNil)
			So(qs.Probabilities()[0], ShouldAlmostEqual, 1.0)
		})

		Convey("Bad gates are rejected", func() {
			So(errors.Is(qs.Apply(H(3)), ErrShape), ShouldBeTrue)
			So(errors.Is(qs.Apply(Gate{Name: "T", Qubits: []int{0}}), ErrConfiguration), ShouldBeTrue)
			So(errors.Is(qs.Apply(Gate{Name: GateRX, Qubits: []int{0}}), ErrConfiguration), ShouldBeTrue)
			So(errors.Is(qs.Apply(Gate{Name: GateCNOT, Qubits: []int{0}}), ErrConfiguration), ShouldBeTrue)
		})

		Convey("Measurement gates do not change the state", func() {
			So(qs.Apply(Measure(0)), ShouldBeNil)
			So(qs.Probabilities(), ShouldResemble, []float64{1, 0})
		})
	})

	Convey("Given a Bell state", t, func() {
		qs := NewQuantumState(2)
		So(qs.Run(bellCircuit()), ShouldBeNil)

		Convey("The density matrix has the four corner entries", func() {
			rho := qs.DensityMatrix()
			So(rho.NumQubits(), ShouldEqual, 2)
			So(real(rho.At(0, 0)), ShouldAlmostEqual, 0.5)
			So(real(rho.At(0, 3)), ShouldAlmostEqual, 0.5)
			So(real(rho.At(3, 3)), ShouldAlmostEqual, 0.5)
			So(real(rho.At(1, 1)), ShouldAlmostEqual, 0.0)
			So(real(rho.Trace()), ShouldAlmostEqual, 1.0)
		})

		Convey("Samples are perfectly correlated", func() {
			rng := rand.New(rand.NewPCG(1, 2))
			m, err := qs.Sample(rng, 1000, 0, 1)
			So(err, ShouldBeNil)
			So(m.Shots(), ShouldEqual, 1000)
			So(m.Counts["01"], ShouldEqual, 0)
			So(m.Counts["10"], ShouldEqual, 0)
			So(m.Counts["00"], ShouldBeGreaterThan, 400)
			So(m.Counts["11"], ShouldBeGreaterThan, 400)
		})
	})

	Convey("Given a basis state", t, func() {
		qs := NewQuantumState(3)
		So(qs.Run(NewCircuit(X(0))), ShouldBeNil)
		rng := rand.New(rand.NewPCG(3, 4))

		Convey("Bits follow the requested qubit order", func() {
			m, err := qs.Sample(rng, 10, 1, 0)
			So(err, ShouldBeNil)
			So(m.Counts, ShouldResemble, map[string]int{"01": 10})
		})

		Convey("Unknown qubits are shape errors", func() {
			_, err := qs.Sample(rng, 10, 3)
			So(errors.Is(err, ErrShape), ShouldBeTrue)
		})
	})
}

func TestSimulator(t *testing.T) {
	Convey("Given a simulator", t, func() {
		ctx := context.Background()
		sim := NewSimulator(2, 100, 5)

		Convey("Its density backend is serial", func() {
			backend := sim.DensityMatrixBackend()
			So(backend.Dispatch(), ShouldEqual, DispatchSerial)
			So(backend.Returns(), ShouldEqual, ResultDensityMatrix)

			r, err := backend.serial(ctx, NewCircuit(X(1)), nil)
			So(err, ShouldBeNil)
			So(real(r.(*DensityMatrix).At(1, 1)), ShouldAlmostEqual, 1.0)
		})

		Convey("Its sampling backend is batched", func() {
			backend := sim.SamplingBackend()
			So(backend.Dispatch(), ShouldEqual, DispatchBatched)
			So(backend.Returns(), ShouldEqual, ResultMeasurement)

			rs, err := backend.batched(ctx, []*Circuit{
				NewCircuit(X(0), Measure(0, 1)),
				NewCircuit(Measure(1)),
			}, nil)
			So(err, ShouldBeNil)
			So(rs, ShouldHaveLength, 2)
			So(rs[0].(*MeasurementResult).Counts, ShouldResemble, map[string]int{"10": 100})
			So(rs[1].(*MeasurementResult).Counts, ShouldResemble, map[string]int{"0": 100})
		})

		Convey("Circuits wider than the simulator grow the register", func() {
			r, err := sim.DensityMatrixBackend().serial(ctx, NewCircuit(X(3)), nil)
			So(err, ShouldBeNil)
			So(r.(*DensityMatrix).NumQubits(), ShouldEqual, 4)
		})
	})
}
