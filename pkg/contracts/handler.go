package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts its routes on the shared router. The application shell wires
// health and API handlers through this without knowing their concrete types.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
