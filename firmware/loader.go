package firmware

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// XZSuffix marks images stored xz-compressed.
const XZSuffix = ".xz"

// MaxImageSize bounds the size of an image read into memory.
const MaxImageSize = 64 << 20

// Load reads a firmware image from the given file path.
// Files ending in XZSuffix are decompressed and announced without the suffix.
//
// Example:
//
//	img, err := firmware.Load("build/app.bin.xz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s: %d bytes\n", img.Name, img.Size())
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadReader(filepath.Base(path), f)
}

// LoadReader reads a firmware image from any io.Reader. name decides both
// the announced file name and whether the content is xz-compressed.
func LoadReader(name string, r io.Reader) (*Image, error) {
	if name == "" {
		return nil, fmt.Errorf("image name cannot be empty")
	}

	if strings.HasSuffix(name, XZSuffix) {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open xz stream: %w", err)
		}
		r = xr
		name = strings.TrimSuffix(name, XZSuffix)
		if name == "" {
			return nil, fmt.Errorf("image name cannot be empty")
		}
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("image %s exceeds maximum size of %d bytes", name, MaxImageSize)
	}

	return &Image{Name: name, Data: data}, nil
}
