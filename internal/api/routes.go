package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/expenses"
	"github.com/JaimeStill/tally/internal/trigger"
	"github.com/JaimeStill/tally/pkg/openapi"
	"github.com/JaimeStill/tally/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
	cfg *config.Config,
) ([]string, error) {
	var dispatch expenses.Dispatcher
	if runtime.Pipeline.AsyncDispatch {
		dispatch = domain.Publisher
	}

	run := trigger.WithTimeout(trigger.WorkflowRunner(domain.Workflow), runtime.Pipeline.RunTimeoutDuration())

	groups := []routes.Group{
		domain.Expenses.Handler(cfg.API.MaxUploadSizeBytes(), dispatch).Routes(),
		trigger.NewHandler(run, domain.Publisher, runtime.Logger).Routes(),
	}

	spec := openapi.NewSpec(&cfg.API.OpenAPI, cfg.Version)
	spec.AddServer(cfg.API.OpenAPI.ServerURL(cfg.API.BasePath))
	if err := routes.Describe(spec, "", groups...); err != nil {
		return nil, fmt.Errorf("describe routes: %w", err)
	}

	serveSpec, err := spec.Handler()
	if err != nil {
		return nil, err
	}

	groups = append(groups, routes.Group{
		Routes: []routes.Route{{Method: "GET", Pattern: "/openapi.json", Handler: serveSpec}},
	})

	return routes.Register(mux, groups...), nil
}
