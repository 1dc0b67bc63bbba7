package math

func TransformCreate() *Transform {
	return &Transform{
		Rotation: NewQuatIdentity(),
		Scale:    NewVec3One(),
		Local:    NewMat4Identity(),
	}
}

func (t *Transform) invalidate() { t.IsDirty = true }

func (t *Transform) SetPosition(position Vec3) { t.Position = position; t.invalidate() }

func (t *Transform) SetRotation(rotation Quaternion) { t.Rotation = rotation; t.invalidate() }

// Rotate composes rotation after the current orientation.
func (t *Transform) Rotate(rotation Quaternion) {
	t.Rotation = t.Rotation.Mul(rotation)
	t.invalidate()
}

func (t *Transform) SetScale(scale Vec3) { t.Scale = scale; t.invalidate() }

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position, t.Rotation, t.Scale = position, rotation, scale
	t.invalidate()
}

// GetLocal returns scale, then rotation, then translation. The matrix is
// cached until a setter runs.
func (t *Transform) GetLocal() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	if t.IsDirty {
		t.Local = NewMat4Scale(t.Scale).Mul(t.Rotation.ToMat4()).Mul(NewMat4Translation(t.Position))
		t.IsDirty = false
	}
	return t.Local
}

// GetWorld walks up the parent chain: local * parent world.
func (t *Transform) GetWorld() Mat4 {
	world := NewMat4Identity()
	for cur := t; cur != nil; cur = cur.Parent {
		world = world.Mul(cur.GetLocal())
	}
	return world
}
