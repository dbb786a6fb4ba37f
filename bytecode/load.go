package bytecode

import (
	"fmt"
	"os"
	"path/filepath"
)

// AssemblyExt marks assembly source files.
const AssemblyExt = ".oasm"

// LoadFile reads an image from path. Files ending in AssemblyExt are
// assembled; anything else is decoded as a serialized image.
func LoadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if filepath.Ext(path) == AssemblyExt {
		return Assemble(path, data)
	}
	im, err := UnmarshalImage(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return im, nil
}
