package metadata

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/character-studio/engine/math"
)

/**
 * @brief A scene graph node. A node owns its children; meshes and skeletons
 * hang off nodes. Transform.Parent mirrors the node hierarchy.
 */
type Node struct {
	ID        uuid.UUID
	Name      string
	Transform *math.Transform
	Parent    *Node
	Children  []*Node
	Mesh      *Mesh
	Skeleton  *Skeleton
	UserData  map[string]interface{}
	Disposed  bool
}

func NewNode(name string) *Node {
	return &Node{
		ID:        uuid.New(),
		Name:      name,
		Transform: math.TransformCreate(),
		UserData:  make(map[string]interface{}),
	}
}

// Add attaches child under n, detaching it from any previous parent first.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	child.Transform.Parent = n.Transform
	n.Children = append(n.Children, child)
}

// Remove detaches child from n. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			child.Transform.Parent = nil
			return true
		}
	}
	return false
}

// Detach removes n from its parent, if any.
func (n *Node) Detach() {
	if n.Parent != nil {
		n.Parent.Remove(n)
	}
}

// Traverse visits n and all its descendants depth-first.
func (n *Node) Traverse(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range append([]*Node(nil), n.Children...) {
		c.Traverse(fn)
	}
}

func (n *Node) FindByName(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// Meshes returns every mesh below n, in traversal order.
func (n *Node) Meshes() []*Mesh {
	var out []*Mesh
	n.Traverse(func(c *Node) {
		if c.Mesh != nil {
			out = append(out, c.Mesh)
		}
	})
	return out
}

// MeshNodes returns every node below n that carries a mesh.
func (n *Node) MeshNodes() []*Node {
	var out []*Node
	n.Traverse(func(c *Node) {
		if c.Mesh != nil {
			out = append(out, c)
		}
	})
	return out
}

func (n *Node) HasChild(child *Node) bool {
	for _, c := range n.Children {
		if c == child {
			return true
		}
	}
	return false
}
