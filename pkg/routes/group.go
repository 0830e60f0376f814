package routes

import (
	"net/http"

	"github.com/JaimeStill/tally/pkg/openapi"
)

// Group organizes routes under a common prefix. Tag and Schemas feed the
// API document.
type Group struct {
	Prefix   string
	Tag      string
	Routes   []Route
	Children []Group
	Schemas  map[string]*openapi.Schema
}

// Register adds all routes from the given groups to the mux and returns the
// registered patterns in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, group := range groups {
		walk("", group, func(pattern string, h http.HandlerFunc) {
			mux.HandleFunc(pattern, h)
			patterns = append(patterns, pattern)
		})
	}
	return patterns
}

// Describe adds every documented route to spec under basePath, along with
// each group's schemas. Undocumented routes are skipped.
func Describe(spec *openapi.Spec, basePath string, groups ...Group) error {
	for _, group := range groups {
		if err := describe(spec, basePath, group); err != nil {
			return err
		}
	}
	return nil
}

func describe(spec *openapi.Spec, prefix string, group Group) error {
	fullPrefix := prefix + group.Prefix
	spec.Components.AddSchemas(group.Schemas)

	for _, route := range group.Routes {
		if route.Doc == nil {
			continue
		}
		op := *route.Doc
		if len(op.Tags) == 0 && group.Tag != "" {
			op.Tags = []string{group.Tag}
		}
		if err := spec.AddOperation(fullPrefix+route.Pattern, route.Method, &op); err != nil {
			return err
		}
	}

	for _, child := range group.Children {
		if err := describe(spec, fullPrefix, child); err != nil {
			return err
		}
	}
	return nil
}

func walk(parentPrefix string, group Group, visit func(pattern string, h http.HandlerFunc)) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		visit(route.Method+" "+fullPrefix+route.Pattern, route.Handler)
	}
	for _, child := range group.Children {
		walk(fullPrefix, child, visit)
	}
}
