package common

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"
)

func assertClose(c *qt.C, got []float32, want mgl32.Mat4) {
	c.Helper()
	for i := range 16 {
		c.Assert(math.Abs(float64(got[i]-want[i])) < 1e-5, qt.IsTrue, qt.Commentf("element %d: got %v, want %v", i, got[i], want[i]))
	}
}

func TestMul4(t *testing.T) {
	c := qt.New(t)

	a := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 3, 4))
	b := mgl32.HomogRotate3DZ(0.7)
	out := make([]float32, 16)
	Mul4(out, a[:], b[:])
	assertClose(c, out, a.Mul4(b))

	// out may alias an input
	Mul4(a[:], a[:], b[:])
	assertClose(c, a[:], mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 3, 4)).Mul4(b))
}

func TestPerspectiveMapsDepthToUnitRange(t *testing.T) {
	c := qt.New(t)

	out := make([]float32, 16)
	Perspective(out, mgl32.DegToRad(45), 1.5, 0.1, 100)

	// mgl32 targets [-1,1]; remapping z by 0.5z+0.5w must agree
	remap := mgl32.Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0.5, 0, 0, 0, 0.5, 1}
	assertClose(c, out, remap.Mul4(mgl32.Perspective(mgl32.DegToRad(45), 1.5, 0.1, 100)))

	m := mgl32.Mat4(out)
	near := m.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := m.Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	c.Assert(math.Abs(float64(near.Z()/near.W())) < 1e-5, qt.IsTrue)
	c.Assert(math.Abs(float64(far.Z()/far.W())-1) < 1e-5, qt.IsTrue)
}

func TestRotationYX(t *testing.T) {
	c := qt.New(t)

	out := make([]float32, 16)
	RotationYX(out, 0.3, -1.1)
	assertClose(c, out, mgl32.HomogRotate3DY(-1.1).Mul4(mgl32.HomogRotate3DX(0.3)))
}

func TestLookAt(t *testing.T) {
	c := qt.New(t)

	out := make([]float32, 16)
	LookAt(out, 0, 0, 2, 0, 0, 0, 0, 1, 0)
	assertClose(c, out, mgl32.LookAtV(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))

	LookAt(out, 3, 4, -5, 1, 0, 1, 0, 1, 0)
	assertClose(c, out, mgl32.LookAtV(mgl32.Vec3{3, 4, -5}, mgl32.Vec3{1, 0, 1}, mgl32.Vec3{0, 1, 0}))
}
