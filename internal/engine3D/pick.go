package engine3D

// Hit is the nearest card under a ray.
type Hit struct {
	Mesh     *CardMesh
	Group    *Group
	Index    int
	Distance float32
	Point    Vec3
}

// Outline returns the world-space corners of m placed at pos, clockwise from
// the top-left corner.
func Outline(m *CardMesh, pos Vec3) [4]Vec3 {
	w, h := m.Size()
	q := Rotation(m.Rotation)
	local := [4]Vec3{V3(-w/2, h/2, 0), V3(w/2, h/2, 0), V3(w/2, -h/2, 0), V3(-w/2, -h/2, 0)}
	var out [4]Vec3
	for i, p := range local {
		out[i] = pos.Add(p.MulQuat(q))
	}
	return out
}

// IntersectCard tests r against a card placed at world position pos. Both
// sides of the card count.
func IntersectCard(r Ray, m *CardMesh, pos Vec3) (point Vec3, dist float32, ok bool) {
	c := Outline(m, pos)
	point, ok = r.IntersectTriangle(c[0], c[1], c[2], false)
	if !ok {
		point, ok = r.IntersectTriangle(c[0], c[2], c[3], false)
	}
	if !ok {
		return Vec3{}, 0, false
	}
	return point, point.Sub(r.Origin).Length(), true
}

// Pick returns the nearest visible card intersected by r.
func (s *Scene) Pick(r Ray) (Hit, bool) {
	var best Hit
	found := false
	for _, p := range s.Visible() {
		point, dist, ok := IntersectCard(r, p.Mesh, p.World)
		if !ok || (found && dist >= best.Distance) {
			continue
		}
		best = Hit{Mesh: p.Mesh, Group: p.Group, Index: p.Index, Distance: dist, Point: point}
		found = true
	}
	return best, found
}
