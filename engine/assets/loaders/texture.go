package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type TextureLoader struct{}

func (tl *TextureLoader) Extensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
}

func (tl *TextureLoader) Load(name string, data []byte, params interface{}) (*metadata.Resource, error) {
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("decoding %s: not an image (detected %q)", name, kind.MIME.Value)
	}

	img, format, err := image.Decode(bytes.NewReader(data)) // Decodes the image (e.g., PNG, JPEG)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	tex := metadata.NewTexture(base, img)
	tex.FullPath = name
	tex.Format = format
	tex.HasTransparency = hasTransparency(img)

	return &metadata.Resource{
		Name:     base,
		FullPath: name,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(data)),
		Data:     tex,
	}, nil
}

func (tl *TextureLoader) Unload(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	if t, ok := res.Data.(*metadata.Texture); ok {
		t.Free()
	}
	res.Data = nil
	return nil
}

// IsImage reports whether data looks like an image without relying on the file name.
func IsImage(data []byte) bool {
	return filetype.IsImage(data)
}

func hasTransparency(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}
