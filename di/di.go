// Package di bridges the component registry into a samber/do injector.
// Services declare their dependencies as constructor parameters and the
// injector assembles them from the core objects the components own, so
// business code never reaches into the registry directly.
package di

import "github.com/samber/do/v2"

// Injector is the samber/do injector interface.
type Injector = do.Injector

// RootScope is the samber/do root injector.
type RootScope = do.RootScope

// New creates a root injector.
var New = do.New

// NewWithOpts creates a root injector with options.
var NewWithOpts = do.NewWithOpts
