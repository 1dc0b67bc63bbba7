package math

/**
 * @brief Creates and returns an identity matrix:
 *
 * {
 *   {1, 0, 0, 0},
 *   {0, 1, 0, 0},
 *   {0, 0, 1, 0},
 *   {0, 0, 0, 1}
 * }
 */
func NewMat4Identity() Mat4 {
	m := Mat4{}
	m.Data[0] = 1
	m.Data[5] = 1
	m.Data[10] = 1
	m.Data[15] = 1
	return m
}

/**
 * @brief Returns the result of multiplying mt and other. With row vectors,
 * v * (mt.Mul(other)) applies mt first and then other.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += mt.Data[r*4+k] * other.Data[k*4+c]
			}
			out.Data[r*4+c] = sum
		}
	}
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	m := NewMat4Identity()
	m.Data[12] = position.X
	m.Data[13] = position.Y
	m.Data[14] = position.Z
	return m
}

func NewMat4Scale(scale Vec3) Mat4 {
	m := NewMat4Identity()
	m.Data[0] = scale.X
	m.Data[5] = scale.Y
	m.Data[10] = scale.Z
	return m
}
