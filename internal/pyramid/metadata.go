package pyramid

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// WriteMetadata stores m as root/metadata.json. The record is written to a
// temporary file and renamed so readers never see a partial file.
func WriteMetadata(root string, m tile.Metadata) error {
	path := filepath.Join(root, tile.MetadataFile)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return ioError("encode metadata", path, err)
	}
	data = append(data, '\n')

	f, err := os.CreateTemp(root, ".metadata-*.json")
	if err != nil {
		return ioError("write metadata", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return ioError("write metadata", tmp, err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		return ioError("write metadata", tmp, err)
	}
	if err := f.Close(); err != nil {
		return ioError("write metadata", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ioError("write metadata", path, err)
	}
	return nil
}

// ReadMetadata loads root/metadata.json
func ReadMetadata(root string) (tile.Metadata, error) {
	path := filepath.Join(root, tile.MetadataFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return tile.Metadata{}, &Error{Kind: InputNotFound, Op: "read metadata", Path: path, Err: err}
	}

	var m tile.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return tile.Metadata{}, &Error{Kind: DecodeError, Op: "read metadata", Path: path, Err: err}
	}
	if m.TileSize <= 0 || m.MaxZoom < 0 || m.PaddedSize <= 0 {
		return tile.Metadata{}, &Error{Kind: InvalidConfig, Op: "read metadata", Path: path,
			Err: fmt.Errorf("tile_size %d, max_zoom %d, padded_size %d", m.TileSize, m.MaxZoom, m.PaddedSize)}
	}
	return m, nil
}

// WriteCalibration prints the values a viewer needs to line its coordinate
// system up with the pyramid.
func WriteCalibration(w io.Writer, m tile.Metadata) error {
	_, err := fmt.Fprintf(w, "=== Configuration for calibration ===\nwidth: %d\nheight: %d\npaddedSize: %d\nmaxZoom: %d\ntileSize: %d\n",
		m.OriginalWidth, m.OriginalHeight, m.PaddedSize, m.MaxZoom, m.TileSize)
	return err
}
