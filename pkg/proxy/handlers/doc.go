// Package handlers implements the management API from spec.md §6: every
// endpoint under /ccrelay/api/, as opposed to pkg/proxy's dataplane
// pipeline which handles everything else.
package handlers
