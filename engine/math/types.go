package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

/**
 * @brief a 4x4 matrix, typically used to represent object transformations.
 * Row-major, vectors are treated as rows (v * M), translation lives in elements 12..14.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents the extents of a 3d object.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
}

/**
 * @brief Represents a single vertex in 3D space.
 */
type Vertex3D struct {
	/** @brief The position of the vertex */
	Position Vec3
	/** @brief The normal of the vertex. */
	Normal Vec3
	/** @brief The texture coordinate of the vertex. */
	Texcoord Vec2
}

/**
 * @brief Represents the transform of an object in the world.
 * Transforms can have a parent whose own transform is then
 * taken into account. The properties should be changed through
 * the setters so the local matrix is regenerated.
 */
type Transform struct {
	/** @brief The position relative to the parent. */
	Position Vec3
	/** @brief The rotation relative to the parent. */
	Rotation Quaternion
	/** @brief The scale relative to the parent. */
	Scale Vec3
	/** @brief Set when position, rotation or scale changed since Local was built. */
	IsDirty bool
	/** @brief The cached local transformation matrix. */
	Local Mat4
	/** @brief The parent transform, if any. */
	Parent *Transform
}

/** @brief A linear RGB colour with components in [0, 1]. */
type Color struct {
	R, G, B float32
}
