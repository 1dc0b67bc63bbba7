package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when an operation needs a catalog that was never loaded.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound covers unknown groups, options and external selection references.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition is returned when the avatar state does not allow the operation.
	ErrPrecondition = errors.New("precondition failed")
	// ErrAssetFetch marks a model or texture that could not be fetched or decoded.
	ErrAssetFetch = errors.New("asset fetch failed")
	ErrUnknown    = errors.New("unknown")
)

type AssetKind uint8

const (
	AssetKindModel AssetKind = iota
	AssetKindTexture
	AssetKindDocument
)

func (k AssetKind) String() string {
	switch k {
	case AssetKindModel:
		return "model"
	case AssetKindTexture:
		return "texture"
	case AssetKindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// AssetFetchError carries the location of the asset that failed.
type AssetFetchError struct {
	URL  string
	Kind AssetKind
	Err  error
}

func NewAssetFetchError(url string, kind AssetKind, err error) *AssetFetchError {
	return &AssetFetchError{URL: url, Kind: kind, Err: err}
}

func (e *AssetFetchError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.URL, e.Err)
}

func (e *AssetFetchError) Unwrap() []error {
	return []error{ErrAssetFetch, e.Err}
}
