// Package scripts embeds the loader predicates shipped with refscope.
// Select one from config with `script = "embedded:loaders/<name>.risor"`.
package scripts

import "embed"

//go:embed loaders/*.risor
var FS embed.FS
