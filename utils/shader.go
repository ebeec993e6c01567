package utils

import (
	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

const (
	VertexShaderFile   = "vert.spv"
	FragmentShaderFile = "frag.spv"
	ShaderEntrypoint   = "main"
)

// ShaderSpec declares the resources a shader binds.
type ShaderSpec struct {
	Stage              gpu.ShaderStage
	NumSamplers        int
	NumUniformBuffers  int
	NumStorageBuffers  int
	NumStorageTextures int
}

type ShaderBundle struct {
	Vertex   gpu.Shader
	Fragment gpu.Shader
}

// LoadShader reads a SPIR-V binary from st and creates a shader from it.
func LoadShader(dev gpu.Device, st Storage, name string, spec ShaderSpec) (gpu.Shader, error) {
	if dev.ShaderFormats()&gpu.ShaderFormatSPIRV == 0 {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "device accepts %s, %s is SPIR-V", dev.ShaderFormats(), name)
	}

	code, err := ReadStorageFile(st, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s shader", spec.Stage)
	}

	shader, err := dev.CreateShader(gpu.ShaderCreateInfo{
		Code:               code,
		Entrypoint:         ShaderEntrypoint,
		Format:             gpu.ShaderFormatSPIRV,
		Stage:              spec.Stage,
		NumSamplers:        spec.NumSamplers,
		NumUniformBuffers:  spec.NumUniformBuffers,
		NumStorageBuffers:  spec.NumStorageBuffers,
		NumStorageTextures: spec.NumStorageTextures,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create shader from %s", name)
	}
	return shader, nil
}

// LoadShaderBundle loads vert.spv and frag.spv from the session's asset
// directory. Both shaders are owned by the session.
func (s *Session) LoadShaderBundle(vert, frag ShaderSpec) (ShaderBundle, error) {
	st, err := OpenFileStorage(s.Config.AssetDir)
	if err != nil {
		return ShaderBundle{}, err
	}
	defer st.Close()

	vert.Stage = gpu.ShaderStageVertex
	vs, err := LoadShader(s.Device, st, VertexShaderFile, vert)
	if err != nil {
		return ShaderBundle{}, err
	}
	s.OwnShader(vs)

	frag.Stage = gpu.ShaderStageFragment
	fs, err := LoadShader(s.Device, st, FragmentShaderFile, frag)
	if err != nil {
		return ShaderBundle{}, err
	}
	s.OwnShader(fs)

	return ShaderBundle{Vertex: vs, Fragment: fs}, nil
}
