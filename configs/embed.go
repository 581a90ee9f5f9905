// Package configs provides the embedded configuration template for nearmatch.
//
// The template is embedded at build time so that `nearmatch config init`
// works from source builds and binary releases alike.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config (~/.config/nearmatch/config.yaml)
//  3. Project config (.nearmatch.yaml)
//  4. Environment variables (NEARMATCH_*)
package configs

import _ "embed"

// ConfigTemplate is the commented user configuration written by
// `nearmatch config init`.
//
//go:embed config.example.yaml
var ConfigTemplate string
