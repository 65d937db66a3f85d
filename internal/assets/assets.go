package assets

import (
	"embed"
	"io/fs"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

//go:embed logo.png
var LogoPNG []byte

//go:embed logo_ambient.png
var LogoAmbientPNG []byte

// PrimaryFont draws the hour and minute digits.
var PrimaryFont = gobold.TTF

// SecondaryFont draws the date, seconds and complication text.
var SecondaryFont = goregular.TTF

//go:embed web
var webFS embed.FS

// WebUI is the companion settings page, rooted at internal/assets/web.
var WebUI fs.FS

func init() {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	WebUI = sub
}
