package assets

import "github.com/spaghettifunk/character-studio/engine/metadata"

type Loader interface {
	Load(name string, data []byte, params interface{}) (*metadata.Resource, error) // `interface{}` here allows loaders to take format specific options
	Unload(*metadata.Resource) error
	Extensions() []string
}
