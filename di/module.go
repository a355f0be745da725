// Package di hands the unique instance to an fx application graph.
package di

import (
	"go.uber.org/fx"

	"github.com/rayo1uo/singleton"
)

// Module provides singleton.Handle. Every constructor that asks for it
// receives the same pointer GetInstance returns.
var Module = fx.Module("singleton",
	fx.Provide(Instance),
)

// Instance is the constructor behind Module.
func Instance() singleton.Handle {
	return singleton.GetInstance()
}
