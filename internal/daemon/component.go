package daemon

import (
	"context"
)

// Component is one long-lived part of the daemon. Init runs in dependency
// order, Start in the same order, Stop in reverse.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}

type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

func Healthy(name string) *ComponentHealth {
	return &ComponentHealth{Name: name, Healthy: true}
}

func Unhealthy(name string, err error) *ComponentHealth {
	return &ComponentHealth{Name: name, Error: err}
}
