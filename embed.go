package quill

import "embed"

// EmbeddedAssets contains static assets shipped with the framework:
// quill.css, used by the default views.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
