package main

//go:generate glslc shader.vert -o vert.spv
//go:generate glslc shader.frag -o frag.spv

import (
	"log"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vkngwrapper/gpuexamples/gpu"
	_ "github.com/vkngwrapper/gpuexamples/gpu/vulkan"
	"github.com/vkngwrapper/gpuexamples/input"
	"github.com/vkngwrapper/gpuexamples/platform"
	"github.com/vkngwrapper/gpuexamples/utils"
)

type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
}

// Two counter-clockwise triangles covering the unit quad.
var vertices = []Vertex{
	{Position: mgl32.Vec3{-0.5, -0.5, 0}, UV: mgl32.Vec2{0, 0}},
	{Position: mgl32.Vec3{0.5, -0.5, 0}, UV: mgl32.Vec2{1, 0}},
	{Position: mgl32.Vec3{0.5, 0.5, 0}, UV: mgl32.Vec2{1, 1}},
	{Position: mgl32.Vec3{0.5, 0.5, 0}, UV: mgl32.Vec2{1, 1}},
	{Position: mgl32.Vec3{-0.5, 0.5, 0}, UV: mgl32.Vec2{0, 1}},
	{Position: mgl32.Vec3{-0.5, -0.5, 0}, UV: mgl32.Vec2{0, 0}},
}

const (
	floorTexture  = "assets/floor.png"
	windowTexture = "assets/blending_transparent_window.png"
)

type miscApp struct {
	width, height int

	camera     *utils.FlyCamera
	controller *utils.CameraController
	mvp        utils.MVP

	vertexBuffer gpu.Buffer
	sampler      gpu.Sampler
	planes       []utils.Plane
}

func newMiscApp(width, height int) *miscApp {
	camera := utils.NewFlyCamera()
	return &miscApp{
		width:      width,
		height:     height,
		camera:     camera,
		controller: utils.NewCameraController(camera),
		mvp:        utils.NewMVP(width, height),
	}
}

func (a *miscApp) Init(s *utils.Session) (gpu.GraphicsPipeline, error) {
	shaders, err := s.LoadShaderBundle(
		utils.ShaderSpec{NumUniformBuffers: 1},
		utils.ShaderSpec{NumSamplers: 1, NumUniformBuffers: 1},
	)
	if err != nil {
		return nil, err
	}

	pipeline, err := s.CreatePipeline(utils.PipelineConfig{
		Shaders:       shaders,
		VertexInput:   utils.MustLayoutOf[Vertex](0),
		PrimitiveType: gpu.PrimitiveTypeTriangleList,
		Blend:         utils.AlphaBlend(),
		FillMode:      gpu.FillModeFill,
		CullMode:      gpu.CullModeBack,
		FrontFace:     gpu.FrontFaceCounterClockwise,
		DepthFormat:   s.Config.DepthFormat,
		DepthCompare:  gpu.CompareOpLess,
	})
	if err != nil {
		return nil, err
	}

	vertexData, err := utils.Encode(vertices)
	if err != nil {
		return nil, err
	}
	a.vertexBuffer, err = s.UploadBuffer(gpu.BufferUsageVertex, vertexData)
	if err != nil {
		return nil, err
	}

	textures, err := s.LoadTextures(windowTexture, floorTexture)
	if err != nil {
		return nil, err
	}
	a.sampler, err = s.CreateSampler(utils.DefaultSampler())
	if err != nil {
		return nil, err
	}

	a.planes = initPlanes(textures[1], textures[0])
	return pipeline, nil
}

// initPlanes lays out the floor and two tinted windows. Windows are drawn
// in this order with no depth sorting.
func initPlanes(floor, window gpu.Texture) []utils.Plane {
	ground := utils.NewPlane(floor)
	ground.Position = mgl32.Vec3{0, 0, -0.5}
	ground.Rotation = mgl32.Vec3{-90, 0, 0}
	ground.Scale = mgl32.Vec3{10, 10, 10}

	far := utils.NewPlane(window)
	far.Color = mgl32.Vec4{0.5, 0, 0, 1}
	far.Position = mgl32.Vec3{0.2, 0, -4}

	near := utils.NewPlane(window)
	near.Color = mgl32.Vec4{0.5, 0, 0, 1}
	near.Position = mgl32.Vec3{-0.2, 0, -3}

	return []utils.Plane{ground, far, near}
}

func (a *miscApp) HandleEvent(ev input.Event) bool {
	return a.controller.HandleEvent(ev)
}

func (a *miscApp) Update() {
	a.camera.Update()
	a.mvp.View = a.camera.Mat()
}

func (a *miscApp) Draw(f *utils.Frame) {
	f.Pass.BindVertexBuffers(0, gpu.BufferBinding{Buffer: a.vertexBuffer})
	utils.DrawPlanes(f, a.planes, a.sampler, a.mvp, len(vertices))
}

func main() {
	runtime.LockOSThread()

	sys, err := platform.Init()
	if err != nil {
		log.Fatalf("%+v", err)
	}

	cfg := utils.DefaultConfig("cube", "05_misc")
	cfg.Resizable = false
	cfg.DepthFormat = gpu.TextureFormatD16Unorm
	cfg.RelativeMouseMode = true

	if err := utils.Run(cfg, sys, newMiscApp(cfg.Width, cfg.Height)); err != nil {
		log.Fatalf("%+v", err)
	}
}
