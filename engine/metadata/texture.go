package metadata

import (
	"image"

	"github.com/google/uuid"
)

/**
 * @brief Represents a decoded texture.
 */
type Texture struct {
	ID uuid.UUID
	/** @brief The texture name. */
	Name string
	/** @brief Where the texture was loaded from. */
	FullPath string
	/** @brief The texture width. */
	Width uint32
	/** @brief The texture height. */
	Height uint32
	/** @brief Indicates whether or not the texture has transparency. */
	HasTransparency bool
	/** @brief Encoded format as reported by the decoder (png, jpeg, ...). */
	Format string
	/** @brief The decoded pixels. */
	Image image.Image
	/** @brief Textures bound to VRM meshes are not flipped on Y. */
	FlipY    bool
	Released bool
}

func NewTexture(name string, img image.Image) *Texture {
	t := &Texture{
		ID:    uuid.New(),
		Name:  name,
		Image: img,
	}
	if img != nil {
		b := img.Bounds()
		t.Width = uint32(b.Dx())
		t.Height = uint32(b.Dy())
	}
	return t
}

// Free drops the pixel data.
func (t *Texture) Free() {
	t.Image = nil
	t.Released = true
}
