package gqlcompose

import "context"

// DefaultSitePlugin is the name of the plugin representing the site itself.
// Its type definitions may extend any type without a conflict warning.
const DefaultSitePlugin = "default-site-plugin"

// Plugin API names dispatched through the Runner.
const (
	APIResolvableExtensions  = "resolvableExtensions"
	APISetFieldsOnNodeType   = "setFieldsOnGraphQLNodeType"
	APICreateResolvers       = "createResolvers"
	APICreateSchemaCustomize = "createSchemaCustomization"
)

// Runner dispatches a plugin API call and returns one result per plugin
// that implements the API.
type Runner interface {
	Run(ctx context.Context, api string, payload any) ([]any, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, api string, payload any) ([]any, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, api string, payload any) ([]any, error) {
	return f(ctx, api, payload)
}

// NopRunner is a Runner without plugins.
var NopRunner Runner = RunnerFunc(func(context.Context, string, any) ([]any, error) {
	return nil, nil
})
