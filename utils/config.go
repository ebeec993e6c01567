package utils

import (
	"time"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

const (
	DefaultWindowWidth  = 1024
	DefaultWindowHeight = 720

	StorageReadyTimeout = 5 * time.Second
	StatsInterval       = 5 * time.Second
)

var DefaultClearColor = gpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}

// DeviceOpener creates the device a session runs on. gpu.CreateDevice is
// the default.
type DeviceOpener func(formats gpu.ShaderFormat, debug bool, driverName string) (gpu.Device, error)

type Config struct {
	Title         string
	Width, Height int
	Resizable     bool

	// Debug enables backend validation.
	Debug bool
	// DriverName selects a registered gpu driver; empty picks the first one
	// accepting ShaderFormats.
	DriverName    string
	ShaderFormats gpu.ShaderFormat
	OpenDevice    DeviceOpener

	// AssetDir holds the example's compiled shaders and images.
	AssetDir string

	ClearColor gpu.Color
	// DepthFormat adds a depth attachment to every frame when valid.
	DepthFormat gpu.TextureFormat

	RelativeMouseMode bool
	StatsInterval     time.Duration
}

// DefaultConfig returns the configuration shared by every example: a
// resizable 1024x720 window, validation on, and assets read from the
// example's own directory.
func DefaultConfig(title, exampleDir string) Config {
	return Config{
		Title:         title,
		Width:         DefaultWindowWidth,
		Height:        DefaultWindowHeight,
		Resizable:     true,
		Debug:         true,
		ShaderFormats: gpu.ShaderFormatSPIRV | gpu.ShaderFormatDXIL | gpu.ShaderFormatMSL,
		AssetDir:      exampleDir,
		ClearColor:    DefaultClearColor,
		DepthFormat:   gpu.TextureFormatInvalid,
		StatsInterval: StatsInterval,
	}
}

func (c Config) opener() DeviceOpener {
	if c.OpenDevice != nil {
		return c.OpenDevice
	}
	return gpu.CreateDevice
}
