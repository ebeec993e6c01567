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

// The triangle's vertices are generated in the vertex shader, so the
// pipeline has no vertex input.
type triangleApp struct {
	utils.BaseApp
}

func (a *triangleApp) Init(s *utils.Session) (gpu.GraphicsPipeline, error) {
	shaders, err := s.LoadShaderBundle(utils.ShaderSpec{}, utils.ShaderSpec{})
	if err != nil {
		return nil, err
	}

	return s.CreatePipeline(utils.PipelineConfig{
		Shaders:       shaders,
		PrimitiveType: gpu.PrimitiveTypeTriangleList,
		Blend:         utils.DefaultBlend(),
		FillMode:      gpu.FillModeFill,
	})
}

func (a *triangleApp) Draw(f *utils.Frame) {
	f.Pass.DrawPrimitives(3, 1, 0, 0)
}

func main() {
	runtime.LockOSThread()

	sys, err := platform.Init()
	if err != nil {
		log.Fatalf("%+v", err)
	}

	cfg := utils.DefaultConfig("triangle", "01_triangle")
	if err := utils.Run(cfg, sys, &triangleApp{}); err != nil {
		log.Fatalf("%+v", err)
	}
}
