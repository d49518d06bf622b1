// Package watch reports file-system changes under a set of paths.
//
// Directories are watched recursively through fsnotify; directories created
// while watching are added as they appear. Ignore patterns drop events by
// base name glob ("*.swp"), by path segment ("node_modules") or by path
// glob ("build/*.o").
//
// The watcher forwards every event. Coalescing bursts is left to the
// caller, typically by writing each Change into a debounced value.
package watch
