// Package web holds the embedded HTML templates and static assets served
// by the starbroker binary. Everything ships inside the binary; there is
// no asset pipeline.
package web

import "embed"

//go:embed templates
var Templates embed.FS

//go:embed static
var Static embed.FS
