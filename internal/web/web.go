// Package web embeds the built frontend so the server ships as one binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var distFS embed.FS

// Dist answers the dist tree rooted at its own top level.
func Dist() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
