package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	topDownHeight = 150.0
	chaseDistance = 10.0
	chaseHeight   = 2.5
)

const (
	CameraTopDown     = "top_down"
	CameraThirdPerson = "third_person"
)

// Camera is the view the render side should use this frame.
type Camera struct {
	Mode   string     `json:"mode" msgpack:"mode"`
	Eye    mgl64.Vec3 `json:"eye" msgpack:"eye"`
	Target mgl64.Vec3 `json:"target" msgpack:"target"`
	Up     mgl64.Vec3 `json:"up" msgpack:"up"`
}

// View is the look-at matrix for the camera.
func (c Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye, c.Target, c.Up)
}

// FollowCamera places the camera either straight above the vehicle or behind
// it, facing along the accumulated heading.
func FollowCamera(pos mgl64.Vec3, heading float64, thirdPerson bool) Camera {
	if !thirdPerson {
		return Camera{
			Mode:   CameraTopDown,
			Eye:    mgl64.Vec3{pos.X(), pos.Y(), topDownHeight},
			Target: pos,
			Up:     mgl64.Vec3{0, 1, 0},
		}
	}

	facing := mgl64.Vec3{math.Sin(heading), math.Cos(heading), 0}
	eye := mgl64.Vec3{
		pos.X() - chaseDistance*facing.X(),
		pos.Y() - chaseDistance*facing.Y(),
		pos.Z() + chaseHeight,
	}
	return Camera{
		Mode:   CameraThirdPerson,
		Eye:    eye,
		Target: pos.Add(facing),
		Up:     mgl64.Vec3{0, 0, 1},
	}
}
