package dispatch

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Assets is the embedded web client served at the root path.
var Assets fs.FS

func init() {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	Assets = sub
}
