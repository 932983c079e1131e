package pdfexport

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// AssetLoader fetches the raw bytes of a brand asset such as the logo.
type AssetLoader interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
}

// StaticAsset serves bytes already in memory.
type StaticAsset struct {
	AssetName string
	Data      []byte
}

func (a StaticAsset) Name() string { return a.AssetName }

func (a StaticAsset) Load(context.Context) ([]byte, error) {
	if len(a.Data) == 0 {
		return nil, fmt.Errorf("asset %s is empty", a.AssetName)
	}
	return a.Data, nil
}

// FileAsset reads an asset from the local filesystem.
type FileAsset string

func (a FileAsset) Name() string { return string(a) }

func (a FileAsset) Load(context.Context) ([]byte, error) {
	return os.ReadFile(string(a))
}

// CachedAsset remembers the first successful load of an asset. Failed loads
// are retried on the next call.
type CachedAsset struct {
	Loader AssetLoader

	mu   sync.Mutex
	data []byte
}

func (a *CachedAsset) Name() string { return a.Loader.Name() }

func (a *CachedAsset) Load(ctx context.Context) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data != nil {
		return a.data, nil
	}
	data, err := a.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.data = data
	return data, nil
}
