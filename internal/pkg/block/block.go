// Package block defines the provider of file block data consumed by
// transfer sessions, along with in-memory, directory-backed and
// redis-backed implementations.
package block

import "github.com/pkg/errors"

// Size is the fixed block size in bytes. Block k of a resource covers
// byte offsets (k-1)*Size through k*Size-1.
const Size = 512

// ErrNotFound indicates that no resource exists under the requested name.
var ErrNotFound = errors.New("resource not found")

// Provider serves one block of a named resource. Block numbers are
// 1-based. A provider returns a short (possibly empty) payload for the
// block containing the end of the resource, and an empty payload for
// the block immediately past it, so that a resource whose size is an
// exact multiple of Size still yields a terminating short block.
type Provider interface {
	GetBlock(filename string, blockNumber uint32) ([]byte, error)
}

// MemoryProvider serves blocks out of a map of byte slices.
type MemoryProvider struct {
	resources map[string][]byte
}

// NewMemoryProvider creates a MemoryProvider serving the given resources.
func NewMemoryProvider(resources map[string][]byte) *MemoryProvider {
	if resources == nil {
		resources = make(map[string][]byte)
	}
	return &MemoryProvider{resources: resources}
}

// Put stores a resource under the given name, replacing any existing one.
func (p *MemoryProvider) Put(filename string, data []byte) {
	p.resources[filename] = data
}

// GetBlock implements Provider.
func (p *MemoryProvider) GetBlock(filename string, blockNumber uint32) ([]byte, error) {
	if blockNumber == 0 {
		return nil, errors.New("block number must be positive")
	}
	data, ok := p.resources[filename]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, filename)
	}
	offset := (int64(blockNumber) - 1) * Size
	if offset >= int64(len(data)) {
		return []byte{}, nil
	}
	end := offset + Size
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end], nil
}
