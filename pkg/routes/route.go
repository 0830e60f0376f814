package routes

import (
	"net/http"

	"github.com/JaimeStill/tally/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. Routes with a nil
// Doc are served but left out of the API document.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	Doc     *openapi.Operation
}
