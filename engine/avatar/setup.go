package avatar

import (
	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

// Shade colour factor applied to the lit colour of toon materials.
const shadeFactor float32 = 0.8

// resolveCulling applies item > group > catalog default > unbounded default.
func resolveCulling(item, group, template metadata.CullingHints) metadata.CullingInfo {
	info := metadata.DefaultCullingInfo()
	for _, h := range []metadata.CullingHints{template, group, item} {
		if h.Layer != nil {
			info.Layer = *h.Layer
		}
		if h.Distance != nil {
			info.Near = *h.Distance
		}
		if h.MaxDistance != nil {
			info.Far = *h.MaxDistance
		}
	}
	return info
}

// meshTargets returns the meshes named by targets, or every mesh of the model
// when no targets are declared.
func meshTargets(model *metadata.Model, targets []string) []*metadata.Mesh {
	if len(targets) == 0 {
		return model.Meshes()
	}
	var out []*metadata.Mesh
	for _, name := range targets {
		n := model.Scene.FindByName(name)
		if n != nil && n.Mesh != nil {
			out = append(out, n.Mesh)
		}
	}
	return out
}

// applySurface binds textures and colours to the mesh targets. Target i uses
// textures[i] when supplied, textures[0] otherwise; colours likewise.
func (cm *CharacterManager) applySurface(model *metadata.Model, targets []string, data *metadata.LoadedData) {
	for i, mesh := range meshTargets(model, targets) {
		mat := mesh.SurfaceMaterial()
		if mat == nil {
			continue
		}
		if tex := data.TextureAt(i); tex != nil {
			if err := cm.systems.MaterialSystem.SetTexture(mat, tex); err != nil {
				cm.logger.Warn("binding texture", "mesh", mesh.Name, "err", err)
			}
		}
		if col, ok := data.ColorAt(i); ok {
			mat.Color = col
			mat.ShadeColor = col.MulScalar(shadeFactor)
		}
	}
}

// installDebugMaterial keeps the authored materials and adds a wireframe
// material in a random bright colour that SetDebugMode swaps in.
func (cm *CharacterManager) installDebugMaterial(mesh *metadata.Mesh) {
	if mesh.OrigMaterials == nil {
		mesh.OrigMaterials = append([]*metadata.Material(nil), mesh.Materials...)
	}
	if mesh.DebugMaterial == nil {
		const minChannel = 0.1
		dbg := metadata.NewMaterial(mesh.Name + "_debug")
		dbg.Wireframe = true
		dbg.Color = math.Color{
			R: minChannel + cm.randFloat()*(1-minChannel),
			G: minChannel + cm.randFloat()*(1-minChannel),
			B: minChannel + cm.randFloat()*(1-minChannel),
		}
		dbg.ShadeColor = dbg.Color
		mesh.DebugMaterial = dbg
	}
	mesh.SetDebugMode(cm.debug)
}

// fixLegacyOrientation turns legacy rigs around once and records the rest
// position of every bone.
func fixLegacyOrientation(model *metadata.Model) {
	if !model.IsLegacy() || model.OrientationFixed {
		return
	}
	model.Scene.Transform.Rotate(math.NewQuatFromAxisAngle(math.NewVec3Up(), math.K_PI, true))
	if model.Skeleton != nil {
		for _, b := range model.Skeleton.Bones {
			if b.Node == nil {
				continue
			}
			rest := b.Node.Transform.Position
			b.RestPosition = &rest
		}
	}
	for _, mesh := range model.Meshes() {
		mesh.Legacy = true
	}
	model.OrientationFixed = true
}

// setupModel prepares one loaded model part of a group before it is attached.
func (cm *CharacterManager) setupModel(model *metadata.Model, groupID string, group *metadata.TraitGroup, data *metadata.LoadedData) {
	normalizeBones(model)

	if cm.catalog.IsColliderRequired(groupID) {
		model.CapturedColliders = append([]metadata.Collider(nil), model.Colliders...)
	}
	// Bind itself runs after integration, see attachLocked.
	if cm.catalog.IsLipSyncSource(groupID) && cm.lipSync != nil {
		model.LipSyncBound = true
	}

	for _, mesh := range model.Meshes() {
		cm.installDebugMaterial(mesh)
	}

	var item metadata.ModelTrait
	if data.Source != nil && data.Source.Model != nil && data.Source.Model.Model != nil {
		item = *data.Source.Model.Model
	}
	var groupHints metadata.CullingHints
	if group != nil {
		groupHints = group.Culling
	}
	model.Culling = resolveCulling(item.Culling, groupHints, cm.catalog.DefaultCulling())
	model.Culling.IgnoreNames = item.CullingIgnore

	cm.applySurface(model, item.MeshTargets, data)

	fixLegacyOrientation(model)

	s := cm.catalog.ExportScale()
	model.Scene.Transform.SetScale(math.NewVec3(s, s, s))
}
