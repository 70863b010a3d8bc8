package tile

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// PathTemplate is the layout of tiles below the output directory
const PathTemplate = "{z}/{x}/{y}.{ext}"

// MetadataFile is the name of the metadata record in the output directory
const MetadataFile = "metadata.json"

// BuildPath replaces template tokens
func BuildPath(template string, c Coord, ext string) string {
	p := template
	p = strings.ReplaceAll(p, "{z}", strconv.Itoa(c.Zoom))
	p = strings.ReplaceAll(p, "{x}", strconv.Itoa(c.X))
	p = strings.ReplaceAll(p, "{y}", strconv.Itoa(c.Y))
	p = strings.ReplaceAll(p, "{ext}", ext)
	return p
}

// Path returns the file path of a tile below root
func Path(root string, c Coord, ext string) string {
	return filepath.Join(root, filepath.FromSlash(BuildPath(PathTemplate, c, ext)))
}

// ColumnDir returns the directory holding every tile of column x at zoom z
func ColumnDir(root string, zoom, x int) string {
	return filepath.Join(root, strconv.Itoa(zoom), strconv.Itoa(x))
}

// SplitName splits a tile file name such as "3.png" into its row and extension
func SplitName(name string) (string, string, error) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", fmt.Errorf("invalid tile name: %s", name)
	}
	return name[:idx], name[idx+1:], nil
}
