package singleton

// noCopy makes go vet's copylocks check flag copies of the instance made
// inside this package, e.g. `v := *p` with p a *singleton. Importers never
// see a *singleton, only Handle.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
