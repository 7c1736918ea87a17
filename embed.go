package pressroom

import "embed"

// EmbeddedAssets contains static assets shipped with the engine:
// consent.js and pressroom.css.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
