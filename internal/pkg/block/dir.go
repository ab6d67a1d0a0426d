package block

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DirProvider serves blocks from the files directly inside one
// directory. Requested names are matched against the directory listing
// rather than joined into a path, so a name like "../etc/passwd" can
// never resolve outside the served directory.
type DirProvider struct {
	root string
}

// NewDirProvider creates a DirProvider serving files from root.
func NewDirProvider(root string) *DirProvider {
	return &DirProvider{root: root}
}

// GetBlock implements Provider.
func (p *DirProvider) GetBlock(filename string, blockNumber uint32) ([]byte, error) {
	if blockNumber == 0 {
		return nil, errors.New("block number must be positive")
	}
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s failed", p.root)
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() != filename {
			continue
		}
		return p.readBlock(filepath.Join(p.root, entry.Name()), blockNumber)
	}
	return nil, errors.Wrap(ErrNotFound, filename)
}

func (p *DirProvider) readBlock(path string, blockNumber uint32) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s failed", path)
	}
	defer f.Close()
	buf := make([]byte, Size)
	n, err := f.ReadAt(buf, (int64(blockNumber)-1)*Size)
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "read %s block %d failed", path, blockNumber)
	}
	return buf[:n], nil
}
