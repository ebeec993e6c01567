package utils

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

const (
	FieldOfView = 45
	NearPlane   = 0.01
	FarPlane    = 1000
)

// MVP is the vertex uniform block of the camera examples, three column
// major 4x4 matrices.
type MVP struct {
	Proj  mgl32.Mat4
	View  mgl32.Mat4
	Model mgl32.Mat4
}

func NewMVP(width, height int) MVP {
	return MVP{
		Proj:  Perspective(width, height),
		View:  mgl32.Ident4(),
		Model: mgl32.Ident4(),
	}
}

func Perspective(width, height int) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(FieldOfView), float32(width)/float32(height), NearPlane, FarPlane)
}

// Plane is a textured, tinted quad placed in the world.
type Plane struct {
	Position mgl32.Vec3
	// Rotation is in degrees, applied x then y then z.
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
	Color    mgl32.Vec4
	Texture  gpu.Texture
}

func NewPlane(texture gpu.Texture) Plane {
	return Plane{Scale: mgl32.Vec3{1, 1, 1}, Color: mgl32.Vec4{1, 1, 1, 1}, Texture: texture}
}

// Model is Rx Ry Rz T(position) S(scale).
func (p Plane) Model() mgl32.Mat4 {
	return mgl32.HomogRotate3DX(mgl32.DegToRad(p.Rotation[0])).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(p.Rotation[1]))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(p.Rotation[2]))).
		Mul4(mgl32.Translate3D(p.Position[0], p.Position[1], p.Position[2])).
		Mul4(mgl32.Scale3D(p.Scale[0], p.Scale[1], p.Scale[2]))
}

// DrawPlanes draws each plane in order with count vertices from the bound
// vertex buffer, binding its texture with smp and pushing its MVP and color.
func DrawPlanes(f *Frame, planes []Plane, smp gpu.Sampler, base MVP, count int) {
	for _, plane := range planes {
		mvp := base
		mvp.Model = plane.Model()

		f.Pass.BindFragmentSamplers(0, gpu.TextureSamplerBinding{Texture: plane.Texture, Sampler: smp})
		f.PushVertexUniform(0, mvp)
		f.PushFragmentUniform(0, plane.Color)
		f.Pass.DrawPrimitives(count, 1, 0, 0)
	}
}
