package engine3D

import "sync"

// Group is an ordered set of card meshes sharing one translation.
type Group struct {
	Name     string
	Position Vec3
	Meshes   []*CardMesh
}

func NewGroup(name string, meshes ...*CardMesh) *Group {
	return &Group{Name: name, Meshes: meshes}
}

// IndexOf returns the position of m in the group, or -1.
func (g *Group) IndexOf(m *CardMesh) int {
	for i, mesh := range g.Meshes {
		if mesh == m {
			return i
		}
	}
	return -1
}

// Scene is the root of everything a Manager draws.
type Scene struct {
	mu     sync.RWMutex
	groups []*Group
}

func NewScene() *Scene { return &Scene{} }

func (s *Scene) Add(g *Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if existing == g {
			return
		}
	}
	s.groups = append(s.groups, g)
}

func (s *Scene) Remove(g *Group) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.groups {
		if existing == g {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			return true
		}
	}
	return false
}

// Clear detaches every group. Meshes are not disposed; that stays with their owner.
func (s *Scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = nil
}

func (s *Scene) Groups() []*Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Group(nil), s.groups...)
}

// Meshes flattens every group in scene order.
func (s *Scene) Meshes() []*CardMesh {
	var out []*CardMesh
	for _, g := range s.Groups() {
		out = append(out, g.Meshes...)
	}
	return out
}

// Len reports the number of meshes reachable from the scene.
func (s *Scene) Len() int {
	n := 0
	for _, g := range s.Groups() {
		n += len(g.Meshes)
	}
	return n
}

// Contains reports whether m is reachable from the scene.
func (s *Scene) Contains(m *CardMesh) bool {
	for _, g := range s.Groups() {
		if g.IndexOf(m) >= 0 {
			return true
		}
	}
	return false
}

// Placed is a mesh with its world transform resolved.
type Placed struct {
	Mesh  *CardMesh
	Group *Group
	Index int
	World Vec3
}

// Visible lists the live, visible meshes with their world positions in scene order.
func (s *Scene) Visible() []Placed {
	var out []Placed
	for _, g := range s.Groups() {
		for i, m := range g.Meshes {
			if m == nil || m.disposed || !m.Visible {
				continue
			}
			out = append(out, Placed{Mesh: m, Group: g, Index: i, World: g.Position.Add(m.Position)})
		}
	}
	return out
}
