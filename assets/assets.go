// Package assets embeds the shader sources and example scenes so tools
// and tests run without a checkout-relative path.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed shaders scenes config.toml
var files embed.FS

// Shaders returns the shader tree rooted at the pass directories.
func Shaders() fs.FS {
	sub, err := fs.Sub(files, "shaders")
	if err != nil {
		panic(err)
	}
	return sub
}

// Scene returns the contents of an embedded scene file.
func Scene(name string) ([]byte, error) {
	return files.ReadFile("scenes/" + name)
}

// DefaultConfig returns the example configuration file.
func DefaultConfig() []byte {
	data, _ := files.ReadFile("config.toml")
	return data
}
