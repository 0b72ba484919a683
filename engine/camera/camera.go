package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/Carmen-Shannon/oxy-ssgi/engine/ssgi"
)

type cameraImpl struct {
	mu *sync.Mutex

	fov    float32
	aspect float32
	near   float32
	far    float32
	scale  common.Float2

	projection common.Projection
}

// Camera holds the perspective settings the effect reconstructs view-space positions from,
// plus the dynamic resolution scale the host is rendering at.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ResolutionScale returns the dynamic resolution scale per axis.
	ResolutionScale() common.Float2

	// Projection returns the current projection in row-vector convention.
	//
	// Returns:
	//   - common.Projection: the projection matrix
	Projection() common.Projection

	// SetFov sets the vertical field of view in radians and recomputes the projection.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes the projection.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetClip sets the near and far clipping planes and recomputes the projection.
	// Invalid planes (near <= 0 or far <= near) are ignored.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClip(near, far float32)

	// SetResolutionScale sets the dynamic resolution scale. Each axis is clamped to (0, 1].
	//
	// Parameters:
	//   - x, y: the scale per axis
	SetResolutionScale(x, y float32)

	// FrameContext builds the per-frame input of the effect from the camera's current state.
	//
	// Parameters:
	//   - frameID: the host frame counter
	//
	// Returns:
	//   - ssgi.FrameContext: the frame context
	FrameContext(frameID uint32) ssgi.FrameContext
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with a 45 degree field of view, square aspect and full resolution.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		fov:    45.0 * (math.Pi / 180.0), // radians
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		scale:  common.Float2{1, 1},
	}
	for _, option := range options {
		option(c)
	}
	c.updateProjection()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ResolutionScale() common.Float2 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

func (c *cameraImpl) Projection() common.Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateProjection()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateProjection()
}

func (c *cameraImpl) SetClip(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if near <= 0 || far <= near {
		return
	}
	c.near, c.far = near, far
	c.updateProjection()
}

func (c *cameraImpl) SetResolutionScale(x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scale = common.Float2{clampScale(x), clampScale(y)}
}

func (c *cameraImpl) FrameContext(frameID uint32) ssgi.FrameContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ssgi.FrameContext{
		FrameID:         frameID,
		Projection:      c.projection,
		DynamicResScale: c.scale,
	}
}

// updateProjection recalculates the projection matrix. Caller must hold the mutex.
func (c *cameraImpl) updateProjection() {
	c.projection = common.PerspectiveProjection(c.fov, c.aspect, c.near, c.far)
}

// clampScale keeps a resolution scale in (0, 1]. Non-positive scales mean full resolution.
func clampScale(v float32) float32 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}
