package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StringList accepts either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = list
	return nil
}

type rawManifest struct {
	AssetsLocation      string `json:"assetsLocation"`
	TraitsDirectory     string `json:"traitsDirectory"`
	ThumbnailsDirectory string `json:"thumbnailsDirectory"`

	ExportScale            *float32 `json:"exportScale"`
	DefaultCullingLayer    *int     `json:"defaultCullingLayer"`
	DefaultCullingDistance *float32 `json:"defaultCullingDistance"`
	MaxCullingDistance     *float32 `json:"maxCullingDistance"`

	RequiredTraits []string `json:"requiredTraits"`
	ColliderTraits []string `json:"colliderTraits"`
	LipSyncTraits  []string `json:"lipSyncTraits"`
	InitialTraits  []string `json:"initialTraits"`
	RandomTraits   []string `json:"randomTraits"`

	Traits             []rawGroup          `json:"traits"`
	TextureCollections []rawCollection     `json:"textureCollections"`
	ColorCollections   []rawCollection     `json:"colorCollections"`
	TypeRestrictions   map[string][]string `json:"typeRestrictions"`

	// ExternalAttributesQuery is a jq expression yielding {trait_type, value} objects.
	ExternalAttributesQuery string `json:"externalAttributesQuery"`
}

type rawGroup struct {
	Trait              string         `json:"trait"`
	Name               string         `json:"name"`
	IsRequired         bool           `json:"isRequired"`
	Default            string         `json:"default"`
	CullingLayer       *int           `json:"cullingLayer"`
	CullingDistance    *float32       `json:"cullingDistance"`
	MaxCullingDistance *float32       `json:"maxCullingDistance"`
	RestrictedTraits   []string       `json:"restrictedTraits"`
	RestrictedTypes    []string       `json:"restrictedTypes"`
	Collection         []rawModelItem `json:"collection"`
}

type rawModelItem struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Thumbnail          string     `json:"thumbnail"`
	Directory          StringList `json:"directory"`
	MeshTargets        StringList `json:"meshTargets"`
	CullingIgnore      StringList `json:"cullingIgnore"`
	CullingLayer       *int       `json:"cullingLayer"`
	CullingDistance    *float32   `json:"cullingDistance"`
	MaxCullingDistance *float32   `json:"maxCullingDistance"`
	Type               StringList `json:"type"`
	TextureCollection  string     `json:"textureCollection"`
	ColorCollection    string     `json:"colorCollection"`
}

type rawCollection struct {
	Trait      string           `json:"trait"`
	Name       string           `json:"name"`
	Collection []rawVariantItem `json:"collection"`
}

type rawVariantItem struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Thumbnail string     `json:"thumbnail"`
	Directory StringList `json:"directory"`
	Value     StringList `json:"value"`
}

func decodeDocument(document []byte) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
