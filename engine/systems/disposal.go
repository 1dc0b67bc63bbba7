package systems

import (
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

// RegisterNode acquires every geometry and material reachable from node.
// On failure the references taken so far are given back.
func (sm *SystemManager) RegisterNode(node *metadata.Node) error {
	var acquired []*metadata.Mesh
	var err error
	node.Traverse(func(n *metadata.Node) {
		if err != nil || n.Mesh == nil {
			return
		}
		if err = sm.acquireMesh(n.Mesh); err == nil {
			acquired = append(acquired, n.Mesh)
		}
	})
	if err != nil {
		for _, m := range acquired {
			sm.releaseMesh(m)
		}
		return err
	}
	return nil
}

/**
 * @brief Releases everything a node subtree holds: geometry buffers, every
 * material instance (active, authored and debug) with the textures bound to
 * them, and skeleton bone lists. The node is detached from its parent last.
 * Runs synchronously.
 */
func (sm *SystemManager) DisposeNode(node *metadata.Node) {
	if node == nil || node.Disposed {
		return
	}
	meshes := 0
	node.Traverse(func(n *metadata.Node) {
		if n.Mesh != nil {
			sm.releaseMesh(n.Mesh)
			n.Mesh.Materials = nil
			n.Mesh.OrigMaterials = nil
			n.Mesh.DebugMaterial = nil
			meshes++
		}
		if n.Skeleton != nil {
			n.Skeleton.Clear()
		}
		n.Disposed = true
	})
	node.Detach()
	core.LogDebug("disposed node '%s' (%d meshes)", node.Name, meshes)
}

// DisposeModel releases the model scene together with its skeleton.
func (sm *SystemManager) DisposeModel(model *metadata.Model) {
	if model == nil {
		return
	}
	sm.DisposeNode(model.Scene)
	model.Skeleton.Clear()
	model.CapturedColliders = nil
}

func (sm *SystemManager) acquireMesh(mesh *metadata.Mesh) error {
	if err := sm.GeometrySystem.Acquire(mesh.Geometry); err != nil {
		return err
	}
	mats := mesh.AllMaterials()
	for i, mat := range mats {
		if err := sm.MaterialSystem.Acquire(mat); err != nil {
			for _, done := range mats[:i] {
				sm.MaterialSystem.Release(done)
			}
			sm.GeometrySystem.Release(mesh.Geometry)
			return err
		}
	}
	return nil
}

func (sm *SystemManager) releaseMesh(mesh *metadata.Mesh) {
	sm.GeometrySystem.Release(mesh.Geometry)
	for _, mat := range mesh.AllMaterials() {
		sm.MaterialSystem.Release(mat)
	}
}
