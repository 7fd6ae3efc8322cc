// Package programs holds small console programs written against
// ports.Terminal. They exercise every emission path and both reset strategies.
package programs

import "github.com/aretw0/ttystep/pkg/registry"

// Register adds the built-in programs to reg.
func Register(reg *registry.Registry) {
	reg.Register("demo", "one-room dungeon crawl with a start screen and a global turn counter", Demo{})
	reg.Register("echo", "stack-confined line echo", Echo{})
}
