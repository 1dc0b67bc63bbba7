package math

import "github.com/chewxy/math32"

// GeometryGenerateNormals writes smoothed vertex normals averaged from the faces
// each vertex belongs to.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = Vec3{}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= len(vertices) || int(i1) >= len(vertices) || int(i2) >= len(vertices) {
			continue
		}
		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)
		n := edge1.Cross(edge2)

		vertices[i0].Normal = vertices[i0].Normal.Add(n)
		vertices[i1].Normal = vertices[i1].Normal.Add(n)
		vertices[i2].Normal = vertices[i2].Normal.Add(n)
	}
	for i := range vertices {
		vertices[i].Normal = vertices[i].Normal.Normalized()
	}
}

// ExtentsFromPoints returns the bounding box of the given points.
func ExtentsFromPoints(points []Vec3) Extents3D {
	if len(points) == 0 {
		return Extents3D{}
	}
	e := Extents3D{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		e.Min = e.Min.Min(p)
		e.Max = e.Max.Max(p)
	}
	return e
}

/**
 * @brief Slab test of a ray against the box. Returns true when the ray touches
 * the box for some t in [tMin, tMax].
 */
func (e Extents3D) IntersectsRay(origin, dir Vec3, tMin, tMax float32) bool {
	o := [3]float32{origin.X, origin.Y, origin.Z}
	d := [3]float32{dir.X, dir.Y, dir.Z}
	lo := [3]float32{e.Min.X, e.Min.Y, e.Min.Z}
	hi := [3]float32{e.Max.X, e.Max.Y, e.Max.Z}
	for a := 0; a < 3; a++ {
		if math32.Abs(d[a]) < K_FLOAT_EPSILON {
			if o[a] < lo[a] || o[a] > hi[a] {
				return false
			}
			continue
		}
		inv := 1.0 / d[a]
		t0 := (lo[a] - o[a]) * inv
		t1 := (hi[a] - o[a]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = math32.Max(tMin, t0)
		tMax = math32.Min(tMax, t1)
		if tMax < tMin {
			return false
		}
	}
	return true
}

/**
 * @brief Möller–Trumbore ray/triangle intersection, both faces.
 *
 * @return The distance along dir and true on a hit.
 */
func RayIntersectsTriangle(origin, dir, v0, v1, v2 Vec3) (float32, bool) {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := dir.Cross(edge2)
	a := edge1.Dot(h)
	if a > -K_FLOAT_EPSILON && a < K_FLOAT_EPSILON {
		return 0, false
	}
	f := 1.0 / a
	s := origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(edge1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	return f * edge2.Dot(q), true
}
