package avatar

import (
	"strings"

	"github.com/spaghettifunk/character-studio/engine/metadata"
)

// humanoidBones are the canonical humanoid bone names every trait rig is
// renamed to, so that parts authored by different tools share one skeleton
// vocabulary.
var humanoidBones = []string{
	"hips", "spine", "chest", "upperChest", "neck", "head",
	"leftShoulder", "rightShoulder",
	"leftUpperArm", "rightUpperArm", "leftLowerArm", "rightLowerArm",
	"leftHand", "rightHand",
	"leftUpperLeg", "rightUpperLeg", "leftLowerLeg", "rightLowerLeg",
	"leftFoot", "rightFoot", "leftToes", "rightToes",
	"leftEye", "rightEye", "jaw",
	"leftThumbMetacarpal", "leftThumbProximal", "leftThumbIntermediate", "leftThumbDistal",
	"rightThumbMetacarpal", "rightThumbProximal", "rightThumbIntermediate", "rightThumbDistal",
	"leftIndexProximal", "leftIndexIntermediate", "leftIndexDistal",
	"rightIndexProximal", "rightIndexIntermediate", "rightIndexDistal",
	"leftMiddleProximal", "leftMiddleIntermediate", "leftMiddleDistal",
	"rightMiddleProximal", "rightMiddleIntermediate", "rightMiddleDistal",
	"leftRingProximal", "leftRingIntermediate", "leftRingDistal",
	"rightRingProximal", "rightRingIntermediate", "rightRingDistal",
	"leftLittleProximal", "leftLittleIntermediate", "leftLittleDistal",
	"rightLittleProximal", "rightLittleIntermediate", "rightLittleDistal",
}

var canonicalBone = func() map[string]string {
	m := make(map[string]string, len(humanoidBones))
	for _, b := range humanoidBones {
		m[strings.ToLower(b)] = b
	}
	return m
}()

// normalizeBones renames the model's humanoid bones, and the nodes carrying
// them, to their canonical names. Returns how many bones were renamed.
func normalizeBones(model *metadata.Model) int {
	renamed := 0
	for humanoid, actual := range model.Meta.Humanoid {
		canonical, ok := canonicalBone[strings.ToLower(humanoid)]
		if !ok || actual == canonical {
			continue
		}
		if bone := model.Skeleton.Bone(actual); bone != nil {
			bone.Name = canonical
			if bone.Node != nil {
				bone.Node.Name = canonical
			}
			renamed++
			continue
		}
		if n := model.Scene.FindByName(actual); n != nil {
			n.Name = canonical
			renamed++
		}
	}
	return renamed
}
