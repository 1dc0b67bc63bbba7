package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown or unsupported resource. */
	ResourceTypeNone ResourceType = iota
	/** @brief Model resource type (scene graph with meshes). */
	ResourceTypeModel
	/** @brief Image resource type, decoded into a texture. */
	ResourceTypeImage
	/** @brief Structured document (catalog or external selection). */
	ResourceTypeDocument
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeModel:
		return "model"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeDocument:
		return "document"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full path or URL of the resource. */
	FullPath string
	/** @brief The resource type. */
	Type ResourceType
	/** @brief The size of the raw resource data in bytes. */
	DataSize uint64
	/** @brief The decoded resource: *Model or *Texture. */
	Data interface{}
}

// ProgressFunc receives the bytes read so far and the total size of one
// asset. Total is -1 while the size is unknown.
type ProgressFunc func(loaded, total int64)
