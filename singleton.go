// Package singleton owns the one process-wide instance and hands out its
// address through GetInstance.
package singleton

import "golang.org/x/sys/cpu"

type singleton struct {
	_ noCopy
	_ cpu.CacheLinePad
}

// instance lives in static storage. Its zero value is the constructed
// instance, so nothing runs at load time and no importer's init can see it
// half built.
var instance singleton

// Handle is the only view of the instance outside this package. The
// concrete type behind it is unexported, so importers can neither
// dereference it nor assert it back to a value they could copy.
type Handle interface {
	handle()
}

func (*singleton) handle() {}

// GetInstance returns the unique instance. It never allocates, locks or
// fails, and returns the same pointer for the life of the process.
func GetInstance() Handle {
	return &instance
}
