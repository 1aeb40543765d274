// Package rules carries the per-model validators, one vendor per file. Each
// file's init registers its validators into the normalize dispatch table, so
// importing the package for effect is all a caller needs:
//
//	import _ "genbridge/internal/normalize/rules"
//
// Adding a model variant means adding a registration here; nothing else in
// the pipeline changes.
package rules
