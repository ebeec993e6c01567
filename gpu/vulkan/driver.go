// Package vulkan implements gpu.Device on Vulkan through vkngwrapper, with
// SDL2 providing the loader and window surfaces.
//
// Resource bindings follow the SPIR-V layout the examples' shaders are
// compiled for: descriptor set 0 holds vertex samplers, set 1 vertex
// uniform buffers, set 2 fragment samplers and set 3 fragment uniform
// buffers. Uniform buffers are dynamic and fed from a per command buffer
// ring.
package vulkan

import (
	"github.com/vkngwrapper/gpuexamples/gpu"
)

const DriverName = "vulkan"

type Driver struct{}

func (Driver) Name() string { return DriverName }

func (Driver) Formats() gpu.ShaderFormat { return gpu.ShaderFormatSPIRV }

func (Driver) Open(debug bool) (gpu.Device, error) {
	return New(debug)
}

func init() {
	gpu.Register(Driver{})
}
