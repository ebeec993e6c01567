package main

//go:generate glslc shader.vert -o vert.spv
//go:generate glslc shader.frag -o frag.spv

import (
	"log"
	"runtime"

	"github.com/vkngwrapper/gpuexamples/gpu"
	_ "github.com/vkngwrapper/gpuexamples/gpu/vulkan"
	"github.com/vkngwrapper/gpuexamples/platform"
	"github.com/vkngwrapper/gpuexamples/utils"
)

type Vertex struct {
	X, Y    float32 `vertex:"position"`
	R, G, B float32 `vertex:"color"`
	U, V    float32 `vertex:"uv"`
}

var vertices = []Vertex{
	{X: -0.5, Y: -0.5, R: 1, G: 0, B: 0, U: 0, V: 0},
	{X: 0.5, Y: -0.5, R: 0, G: 1, B: 0, U: 1, V: 0},
	{X: 0.5, Y: 0.5, R: 0, G: 0, B: 1, U: 1, V: 1},
	{X: -0.5, Y: 0.5, R: 1, G: 1, B: 0, U: 0, V: 1},
}

var indices = []uint32{
	0, 1, 2,
	0, 3, 2,
}

const textureFile = "girl.png"

type textureApp struct {
	utils.BaseApp

	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
	texture      gpu.Texture
	sampler      gpu.Sampler
}

func (a *textureApp) Init(s *utils.Session) (gpu.GraphicsPipeline, error) {
	shaders, err := s.LoadShaderBundle(utils.ShaderSpec{}, utils.ShaderSpec{NumSamplers: 1})
	if err != nil {
		return nil, err
	}

	pipeline, err := s.CreatePipeline(utils.PipelineConfig{
		Shaders:       shaders,
		VertexInput:   utils.MustLayoutOf[Vertex](0),
		PrimitiveType: gpu.PrimitiveTypeTriangleList,
		Blend:         utils.DefaultBlend(),
		FillMode:      gpu.FillModeFill,
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

	indexData, err := utils.Encode(indices)
	if err != nil {
		return nil, err
	}
	a.indexBuffer, err = s.UploadBuffer(gpu.BufferUsageIndex, indexData)
	if err != nil {
		return nil, err
	}

	textures, err := s.LoadTextures(textureFile)
	if err != nil {
		return nil, err
	}
	a.texture = textures[0]

	a.sampler, err = s.CreateSampler(utils.DefaultSampler())
	if err != nil {
		return nil, err
	}

	return pipeline, nil
}

func (a *textureApp) Draw(f *utils.Frame) {
	f.Pass.BindVertexBuffers(0, gpu.BufferBinding{Buffer: a.vertexBuffer})
	f.Pass.BindIndexBuffer(gpu.BufferBinding{Buffer: a.indexBuffer}, gpu.IndexElementSize32Bit)
	f.Pass.BindFragmentSamplers(0, gpu.TextureSamplerBinding{Texture: a.texture, Sampler: a.sampler})
	f.Pass.DrawIndexedPrimitives(len(indices), 1, 0, 0, 0)
}

func main() {
	runtime.LockOSThread()

	sys, err := platform.Init()
	if err != nil {
		log.Fatalf("%+v", err)
	}

	cfg := utils.DefaultConfig("triangle", "03_texture")
	if err := utils.Run(cfg, sys, &textureApp{}); err != nil {
		log.Fatalf("%+v", err)
	}
}
