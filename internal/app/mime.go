package app

import (
	"log/slog"
	"mime"
)

// Embedded assets are served by extension; minimal containers ship no mime.types.
var staticTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
}

func init() {
	for ext, typ := range staticTypes {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
