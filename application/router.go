package application

import (
	"github.com/gin-gonic/gin"
)

// RouterRegistrar mounts a group of routes on the engine. Implementations
// receive the application to resolve components and configuration.
type RouterRegistrar interface {
	RegisterRoutes(engine *gin.Engine, app *Application)
}

// RouterFunc adapts a function to RouterRegistrar.
type RouterFunc func(engine *gin.Engine, app *Application)

func (f RouterFunc) RegisterRoutes(engine *gin.Engine, app *Application) {
	f(engine, app)
}

// routerManager collects registrars to be mounted when the HTTP server
// is built.
type routerManager struct {
	registrars []RouterRegistrar
}

func newRouterManager() *routerManager {
	return &routerManager{}
}

func (m *routerManager) Add(r RouterRegistrar) {
	m.registrars = append(m.registrars, r)
}

func (m *routerManager) AddFunc(f RouterFunc) {
	m.registrars = append(m.registrars, f)
}

func (m *routerManager) Count() int {
	return len(m.registrars)
}

func (m *routerManager) Register(engine *gin.Engine, app *Application) {
	for _, r := range m.registrars {
		r.RegisterRoutes(engine, app)
	}
}
