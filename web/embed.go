package web

import "embed"

// Templates embeds the visual ticket templates.
//
//go:embed templates/tickets/*.html
var Templates embed.FS
