// Package web holds the browser client served at /.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
