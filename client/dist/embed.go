// Package clientdist embeds the browser client script.
package clientdist

import _ "embed"

// LocsyncJS is the thin client served at "/_locsync/client.js".
//
//go:embed locsync.js
var LocsyncJS []byte
