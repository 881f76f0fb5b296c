// Package configs embeds the commented configuration templates written by
// `planqa config init`.
//
// The user template carries machine settings (backends, storage, server);
// the project template carries retrieval settings. Both hold the built-in
// defaults so a freshly written file changes nothing until edited.
package configs

import _ "embed"

// UserConfigTemplate is written to $XDG_CONFIG_HOME/planqa/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written to .planqa.yaml.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
