package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestFollowCamera_TopDown(t *testing.T) {
	pos := mgl64.Vec3{77.5, 3, 2}
	cam := FollowCamera(pos, 1.3, false)

	assert.Equal(t, CameraTopDown, cam.Mode)
	assert.Equal(t, mgl64.Vec3{77.5, 3, 150}, cam.Eye)
	assert.Equal(t, pos, cam.Target)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, cam.Up)
}

func TestFollowCamera_ThirdPerson(t *testing.T) {
	pos := mgl64.Vec3{77.5, 0, 2}

	cam := FollowCamera(pos, 0, true)
	assert.Equal(t, CameraThirdPerson, cam.Mode)
	assert.InDelta(t, 77.5, cam.Eye.X(), 1e-9)
	assert.InDelta(t, -10, cam.Eye.Y(), 1e-9)
	assert.InDelta(t, 4.5, cam.Eye.Z(), 1e-9)
	assert.InDelta(t, 1, cam.Target.Y(), 1e-9)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, cam.Up)

	cam = FollowCamera(pos, math.Pi/2, true)
	assert.InDelta(t, 67.5, cam.Eye.X(), 1e-9)
	assert.InDelta(t, 0, cam.Eye.Y(), 1e-9)
}

func TestCamera_View(t *testing.T) {
	cam := FollowCamera(mgl64.Vec3{10, 20, 2}, 0, false)
	view := cam.View()

	// the target sits straight ahead of the eye
	target := view.Mul4x1(mgl64.Vec4{10, 20, 2, 1})
	assert.InDelta(t, 0, target.X(), 1e-9)
	assert.InDelta(t, 0, target.Y(), 1e-9)
	assert.InDelta(t, -148, target.Z(), 1e-9)
}
