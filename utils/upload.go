package utils

import (
	"bytes"
	"encoding/binary"
	"image"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

// stage creates an upload transfer buffer holding data.
func stage(dev gpu.Device, data []byte) (gpu.TransferBuffer, error) {
	tb, err := dev.CreateTransferBuffer(gpu.TransferBufferCreateInfo{
		Usage: gpu.TransferBufferUsageUpload,
		Size:  len(data),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transfer buffer")
	}

	mem, err := dev.MapTransferBuffer(tb, false)
	if err != nil {
		dev.ReleaseTransferBuffer(tb)
		return nil, errors.Wrap(err, "failed to map transfer buffer")
	}
	copy(mem, data)
	dev.UnmapTransferBuffer(tb)
	return tb, nil
}

// submitCopy records a single copy pass and submits it. The transfer buffer
// is released once the submission is enqueued, whether or not it
// succeeded.
func submitCopy(dev gpu.Device, tb gpu.TransferBuffer, record func(cp gpu.CopyPass)) error {
	defer dev.ReleaseTransferBuffer(tb)

	cb, err := dev.AcquireCommandBuffer()
	if err != nil {
		return errors.Wrap(err, "failed to acquire command buffer")
	}
	cp := cb.BeginCopyPass()
	record(cp)
	cp.End()
	if err := cb.Submit(); err != nil {
		return errors.Wrap(err, "failed to submit copy")
	}
	return nil
}

// UploadBuffer creates a buffer and enqueues a copy of data into it. It
// returns once the copy is submitted, not completed.
func UploadBuffer(dev gpu.Device, usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	if len(data) == 0 {
		return nil, errors.New("cannot upload an empty buffer")
	}

	tb, err := stage(dev, data)
	if err != nil {
		return nil, err
	}

	buf, err := dev.CreateBuffer(gpu.BufferCreateInfo{Usage: usage, Size: len(data)})
	if err != nil {
		dev.ReleaseTransferBuffer(tb)
		return nil, errors.Wrap(err, "failed to create buffer")
	}

	err = submitCopy(dev, tb, func(cp gpu.CopyPass) {
		cp.UploadToBuffer(
			gpu.TransferBufferLocation{TransferBuffer: tb},
			gpu.BufferRegion{Buffer: buf, Size: len(data)},
			false)
	})
	if err != nil {
		dev.ReleaseBuffer(buf)
		return nil, err
	}
	return buf, nil
}

// Encode serializes a slice of fixed-size values in the layout LayoutOf
// describes for T. Types with padding between fields are rejected, since
// their encoding would not match the in-memory offsets.
func Encode[T any](items []T) ([]byte, error) {
	var zero T
	if size := binary.Size(zero); size < 0 || uintptr(size) != unsafe.Sizeof(zero) {
		return nil, errors.Newf("%T is not a packed fixed-size type", zero)
	}

	buf := &bytes.Buffer{}
	buf.Grow(len(items) * int(unsafe.Sizeof(zero)))
	if err := binary.Write(buf, binary.LittleEndian, items); err != nil {
		return nil, errors.Wrapf(err, "failed to encode %T", zero)
	}
	return buf.Bytes(), nil
}

// UploadSlice encodes items and uploads them as a buffer.
func UploadSlice[T any](dev gpu.Device, usage gpu.BufferUsage, items []T) (gpu.Buffer, error) {
	data, err := Encode(items)
	if err != nil {
		return nil, err
	}
	return UploadBuffer(dev, usage, data)
}

// UploadTexture creates an RGBA8 sampled texture with the pixels of img
// and enqueues their upload.
func UploadTexture(dev gpu.Device, img *image.NRGBA) (gpu.Texture, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("cannot upload an empty image")
	}

	pixels := img.Pix
	if img.Stride != w*4 || len(pixels) != w*h*4 {
		pixels = make([]byte, 0, w*h*4)
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			pixels = append(pixels, row...)
		}
	}

	tb, err := stage(dev, pixels)
	if err != nil {
		return nil, err
	}

	tex, err := dev.CreateTexture(gpu.TextureCreateInfo{
		Type:              gpu.TextureType2D,
		Format:            gpu.TextureFormatR8G8B8A8Unorm,
		Usage:             gpu.TextureUsageSampler,
		Width:             w,
		Height:            h,
		LayerCountOrDepth: 1,
		NumLevels:         1,
		SampleCount:       gpu.SampleCount1,
	})
	if err != nil {
		dev.ReleaseTransferBuffer(tb)
		return nil, errors.Wrap(err, "failed to create texture")
	}

	err = submitCopy(dev, tb, func(cp gpu.CopyPass) {
		cp.UploadToTexture(
			gpu.TextureTransferInfo{TransferBuffer: tb, PixelsPerRow: w, RowsPerLayer: h},
			gpu.TextureRegion{Texture: tex, W: w, H: h, D: 1},
			false)
	})
	if err != nil {
		dev.ReleaseTexture(tex)
		return nil, err
	}
	return tex, nil
}

// DownloadBuffer copies size bytes of buf back to the host. It waits for
// the device to go idle.
func DownloadBuffer(dev gpu.Device, buf gpu.Buffer, size int) ([]byte, error) {
	tb, err := dev.CreateTransferBuffer(gpu.TransferBufferCreateInfo{
		Usage: gpu.TransferBufferUsageDownload,
		Size:  size,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transfer buffer")
	}
	defer dev.ReleaseTransferBuffer(tb)

	cb, err := dev.AcquireCommandBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire command buffer")
	}
	cp := cb.BeginCopyPass()
	cp.DownloadFromBuffer(gpu.BufferRegion{Buffer: buf, Size: size}, gpu.TransferBufferLocation{TransferBuffer: tb})
	cp.End()
	if err := cb.Submit(); err != nil {
		return nil, errors.Wrap(err, "failed to submit download")
	}
	if err := dev.WaitForIdle(); err != nil {
		return nil, err
	}

	mem, err := dev.MapTransferBuffer(tb, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to map transfer buffer")
	}
	defer dev.UnmapTransferBuffer(tb)

	out := make([]byte, size)
	copy(out, mem)
	return out, nil
}

func CreateDepthTexture(dev gpu.Device, format gpu.TextureFormat, w, h int) (gpu.Texture, error) {
	if !format.IsDepth() {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "%s is not a depth format", format)
	}
	tex, err := dev.CreateTexture(gpu.TextureCreateInfo{
		Type:              gpu.TextureType2D,
		Format:            format,
		Usage:             gpu.TextureUsageDepthStencilTarget,
		Width:             w,
		Height:            h,
		LayerCountOrDepth: 1,
		NumLevels:         1,
		SampleCount:       gpu.SampleCount1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %dx%d depth texture", w, h)
	}
	return tex, nil
}

// DefaultSampler is linear filtering with clamped addressing on every axis.
func DefaultSampler() gpu.SamplerCreateInfo {
	return gpu.SamplerCreateInfo{
		MinFilter:    gpu.FilterLinear,
		MagFilter:    gpu.FilterLinear,
		MipmapMode:   gpu.SamplerMipmapModeLinear,
		AddressModeU: gpu.SamplerAddressModeClampToEdge,
		AddressModeV: gpu.SamplerAddressModeClampToEdge,
		AddressModeW: gpu.SamplerAddressModeClampToEdge,
		MinLod:       1,
		MaxLod:       1,
		CompareOp:    gpu.CompareOpAlways,
	}
}

func CreateSampler(dev gpu.Device, info gpu.SamplerCreateInfo) (gpu.Sampler, error) {
	smp, err := dev.CreateSampler(info)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sampler")
	}
	return smp, nil
}

// UploadBuffer uploads data into a buffer owned by the session.
func (s *Session) UploadBuffer(usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	buf, err := UploadBuffer(s.Device, usage, data)
	if err != nil {
		return nil, err
	}
	s.OwnBuffer(buf)
	return buf, nil
}

// UploadTexture uploads img into a texture owned by the session.
func (s *Session) UploadTexture(img *image.NRGBA) (gpu.Texture, error) {
	tex, err := UploadTexture(s.Device, img)
	if err != nil {
		return nil, err
	}
	s.OwnTexture(tex)
	return tex, nil
}

// CreateSampler creates a sampler owned by the session.
func (s *Session) CreateSampler(info gpu.SamplerCreateInfo) (gpu.Sampler, error) {
	smp, err := CreateSampler(s.Device, info)
	if err != nil {
		return nil, err
	}
	s.OwnSampler(smp)
	return smp, nil
}
