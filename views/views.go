// Package views sunucunun gömülü HTML şablonlarıdır.
package views

import (
	"embed"
	"io/fs"
	"net/http"
	"slices"

	"github.com/gofiber/template/html/v2"
)

//go:embed layouts/*.html public/*.html errors/*.html
var files embed.FS

//go:embed static
var static embed.FS

// Static /static altında sunulan dosyalar.
func Static() http.FileSystem {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// NewEngine gömülü şablonlarla fiber görünüm motorunu kurar.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(files), ".html")
	engine.AddFunc("has", func(v any, item string) bool {
		switch list := v.(type) {
		case []string:
			return slices.Contains(list, item)
		case []any:
			return slices.Contains(list, any(item))
		}
		return false
	})
	engine.AddFunc("str", func(v any) string {
		s, _ := v.(string)
		return s
	})
	return engine
}
