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
}

var vertices = []Vertex{
	{X: -0.5, Y: -0.5, R: 1, G: 0, B: 0},
	{X: 0.5, Y: -0.5, R: 0, G: 1, B: 0},
	{X: 0.5, Y: 0.5, R: 0, G: 0, B: 1},
	{X: -0.5, Y: 0.5, R: 1, G: 1, B: 0},
}

var indices = []uint32{
	0, 1, 2,
	0, 3, 2,
}

type bufferApp struct {
	utils.BaseApp

	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
}

func (a *bufferApp) Init(s *utils.Session) (gpu.GraphicsPipeline, error) {
	shaders, err := s.LoadShaderBundle(utils.ShaderSpec{}, utils.ShaderSpec{})
	if err != nil {
		return nil, err
	}

	layout, err := utils.LayoutOf[Vertex](0)
	if err != nil {
		return nil, err
	}
	pipeline, err := s.CreatePipeline(utils.PipelineConfig{
		Shaders:       shaders,
		VertexInput:   layout,
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

	return pipeline, nil
}

func (a *bufferApp) Draw(f *utils.Frame) {
	f.Pass.BindVertexBuffers(0, gpu.BufferBinding{Buffer: a.vertexBuffer})
	f.Pass.BindIndexBuffer(gpu.BufferBinding{Buffer: a.indexBuffer}, gpu.IndexElementSize32Bit)
	f.Pass.DrawIndexedPrimitives(len(indices), 1, 0, 0, 0)
}

func main() {
	runtime.LockOSThread()

	sys, err := platform.Init()
	if err != nil {
		log.Fatalf("%+v", err)
	}

	cfg := utils.DefaultConfig("triangle", "02_buffer")
	if err := utils.Run(cfg, sys, &bufferApp{}); err != nil {
		log.Fatalf("%+v", err)
	}
}
