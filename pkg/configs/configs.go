// Package configs provides embedded default configuration files.
// Run `go generate ./pkg/configs` to update the embedded config from the root directory.
package configs

//go:generate cp ../../config.yml config.yml
// Note: config-minimal.yml is maintained directly in this directory, not synced from root

import _ "embed"

// Embedded configuration files for the `limbo config` command.

//go:embed config.yml
var DefaultConfigBytes []byte

//go:embed config-minimal.yml
var MinimalConfigBytes []byte
