package pyramid

import (
	"errors"
	"image"
	"os"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Load opens and decodes the source image at path
func Load(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Kind: InputNotFound, Op: "open source", Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &Error{Kind: InputNotFound, Op: "open source", Path: path, Err: errors.New("is a directory")}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: InputNotFound, Op: "open source", Path: path, Err: err}
	}
	defer f.Close()

	img, err := tile.Decode(f)
	if err != nil {
		return nil, &Error{Kind: DecodeError, Op: "decode source", Path: path, Err: err}
	}
	return img, nil
}
