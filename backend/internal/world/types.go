package world

import "github.com/go-gl/mathgl/mgl64"

// ShapeType names a mesh the render side knows how to draw.
type ShapeType string

const (
	ShapeSun       ShapeType = "sun"
	ShapeTrack     ShapeType = "disk"
	ShapeUFO       ShapeType = "ufo"
	ShapeObstacle  ShapeType = "obstacle"
	ShapeTimeBonus ShapeType = "timer"
	ShapeCoin      ShapeType = "coin"
)

// Material is an opaque handle; the renderer maps it to shaders and colours.
type Material string

const (
	MaterialSun       Material = "sun"
	MaterialTrack     Material = "disk"
	MaterialUFO       Material = "ufo"
	MaterialObstacle  Material = "obstacle"
	MaterialTimeBonus Material = "timer"
	MaterialCoin      Material = "coin"
)

// Drawable is one (shape, transform, material) triple for a frame.
// Transform is column-major, as mgl64 stores it.
type Drawable struct {
	ID        string     `json:"id" msgpack:"id"`
	Shape     ShapeType  `json:"shape" msgpack:"shape"`
	Material  Material   `json:"material" msgpack:"material"`
	Transform mgl64.Mat4 `json:"transform" msgpack:"transform"`
}

// Position extracts the translation column of the transform.
func (d Drawable) Position() mgl64.Vec3 {
	return Position(d.Transform)
}

// Position returns M·(0,0,0,1) as a 3-vector.
func Position(m mgl64.Mat4) mgl64.Vec3 {
	return m.Mul4x1(mgl64.Vec4{0, 0, 0, 1}).Vec3()
}

// Renderer is the render collaborator: it is handed every drawable once per
// frame and owns everything about how it appears.
type Renderer interface {
	Draw(d Drawable)
}
