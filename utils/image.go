package utils

import (
	"bytes"
	"image"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

// DecodeImage decodes an encoded image into straight-alpha RGBA8 with the
// first row at the bottom, the orientation texture coordinates expect.
func DecodeImage(data []byte) (*image.NRGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	b := src.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Rect, src, b.Min, draw.Src)
	FlipVertical(img)
	return img, nil
}

// FlipVertical reverses the row order of img in place.
func FlipVertical(img *image.NRGBA) {
	h := img.Rect.Dy()
	rowBytes := img.Rect.Dx() * 4
	tmp := make([]byte, rowBytes)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-1-y)*img.Stride+rowBytes]
		copy(tmp, top)
		copy(top, bottom)
		copy(bottom, tmp)
	}
}

func LoadImage(st Storage, name string) (*image.NRGBA, error) {
	data, err := ReadStorageFile(st, name)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", name)
	}
	return img, nil
}

// LoadImages decodes every named image concurrently. Results are in the
// order of names.
func LoadImages(st Storage, names ...string) ([]*image.NRGBA, error) {
	if err := WaitReady(st, StorageReadyTimeout); err != nil {
		return nil, err
	}

	images := make([]*image.NRGBA, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			img, err := LoadImage(st, name)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// LoadTextures decodes the named images from the asset directory and
// uploads each one into a texture owned by the session.
func (s *Session) LoadTextures(names ...string) ([]gpu.Texture, error) {
	st, err := OpenFileStorage(s.Config.AssetDir)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	images, err := LoadImages(st, names...)
	if err != nil {
		return nil, err
	}

	textures := make([]gpu.Texture, len(images))
	for i, img := range images {
		tex, err := s.UploadTexture(img)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to upload %s", names[i])
		}
		textures[i] = tex
	}
	return textures, nil
}
