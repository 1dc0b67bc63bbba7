package math

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHexColor accepts "#rrggbb", "rrggbb", "#rgb" and "0xrrggbb".
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{
		R: float32((v>>16)&0xff) / 255.0,
		G: float32((v>>8)&0xff) / 255.0,
		B: float32(v&0xff) / 255.0,
	}, nil
}

func (c Color) MulScalar(f float32) Color {
	return Color{
		R: Clamp(c.R*f, 0, 1),
		G: Clamp(c.G*f, 0, 1),
		B: Clamp(c.B*f, 0, 1),
	}
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x",
		uint8(Clamp(c.R, 0, 1)*255+0.5),
		uint8(Clamp(c.G, 0, 1)*255+0.5),
		uint8(Clamp(c.B, 0, 1)*255+0.5))
}
