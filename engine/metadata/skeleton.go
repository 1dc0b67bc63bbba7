package metadata

import "github.com/spaghettifunk/character-studio/engine/math"

/**
 * @brief A bone references a node of the model; it does not own it.
 */
type Bone struct {
	Name string
	Node *Node
	// RestPosition is captured once for models on the legacy rig convention.
	RestPosition *math.Vec3
}

type Skeleton struct {
	Bones []*Bone
}

func (s *Skeleton) Bone(name string) *Bone {
	if s == nil {
		return nil
	}
	for _, b := range s.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Clear drops the bone list and every bone-to-node reference.
func (s *Skeleton) Clear() {
	if s == nil {
		return
	}
	for _, b := range s.Bones {
		b.Node = nil
	}
	s.Bones = nil
}

// Collider is a spring-bone collision sphere attached to a bone.
type Collider struct {
	Bone   string
	Offset math.Vec3
	Radius float32
}
