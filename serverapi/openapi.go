package serverapi

import (
	"context"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

const bearerScheme = "bearer"

type route struct {
	method  string
	path    string
	summary string
	admin   bool
	public  bool
	params  openapi3.Parameters
	body    *openapi3.RequestBodyRef
	status  int
	result  *openapi3.Schema
}

func recipeSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("recipe_id", openapi3.NewStringSchema()).
		WithProperty("enabled", openapi3.NewBoolSchema()).
		WithProperty("manual_only", openapi3.NewBoolSchema()).
		WithProperty("pkg_only", openapi3.NewBoolSchema()).
		WithProperty("schedule", openapi3.NewIntegerSchema()).
		WithProperty("last_ran", openapi3.NewDateTimeSchema()).
		WithProperty("recurring_fail_count", openapi3.NewIntegerSchema()).
		WithProperty("notes", openapi3.NewStringSchema()).
		WithProperty("created_at", openapi3.NewDateTimeSchema()).
		WithProperty("updated_at", openapi3.NewDateTimeSchema())
}

func recipeUpdateSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("recipe_id", openapi3.NewStringSchema()).
		WithProperty("enabled", openapi3.NewBoolSchema()).
		WithProperty("manual_only", openapi3.NewBoolSchema()).
		WithProperty("pkg_only", openapi3.NewBoolSchema()).
		WithProperty("schedule", openapi3.NewIntegerSchema()).
		WithProperty("last_ran", openapi3.NewDateTimeSchema()).
		WithProperty("recurring_fail_count", openapi3.NewIntegerSchema()).
		WithProperty("notes", openapi3.NewStringSchema())
}

func errorMessageSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("recipe_id", openapi3.NewStringSchema()).
		WithProperty("payload", openapi3.NewObjectSchema()).
		WithProperty("slack_ts", openapi3.NewStringSchema()).
		WithProperty("slack_channel", openapi3.NewStringSchema()).
		WithProperty("state", openapi3.NewStringSchema()).
		WithProperty("created_at", openapi3.NewDateTimeSchema()).
		WithProperty("updated_at", openapi3.NewDateTimeSchema())
}

func resultSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().WithProperty("result", openapi3.NewStringSchema())
}

func errorBodySchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().WithProperty("error", openapi3.NewObjectSchema().
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("param", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema()))
}

func pathParam(name string, schema *openapi3.Schema) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: openapi3.NewPathParameter(name).WithSchema(schema)}
}

func queryParam(name string, required bool) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{Value: openapi3.NewQueryParameter(name).WithRequired(required).WithSchema(openapi3.NewStringSchema())}
}

func jsonBody(schema *openapi3.Schema) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(schema)}
}

func formBody(schema *openapi3.Schema) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithFormDataSchema(schema)}
}

func routes() []route {
	idParam := openapi3.Parameters{pathParam("id", openapi3.NewInt64Schema())}
	recipeIDParam := openapi3.Parameters{pathParam("recipe_id", openapi3.NewStringSchema())}

	return []route{
		{method: http.MethodGet, path: "/recipes", summary: "List recipes", status: http.StatusOK,
			result: openapi3.NewObjectSchema().
				WithProperty("total", openapi3.NewIntegerSchema()).
				WithProperty("recipes", openapi3.NewArraySchema().WithItems(recipeSchema()))},
		{method: http.MethodGet, path: "/recipe/id/{id}", summary: "Get recipe by id", params: idParam, status: http.StatusOK, result: recipeSchema()},
		{method: http.MethodGet, path: "/recipe/recipe_id/{recipe_id}", summary: "Get recipe by recipe_id", params: recipeIDParam, status: http.StatusOK, result: recipeSchema()},
		{method: http.MethodPost, path: "/recipe", summary: "Create a recipe", admin: true, body: jsonBody(recipeUpdateSchema()), status: http.StatusCreated, result: recipeSchema()},
		{method: http.MethodPut, path: "/recipe/id/{id}", summary: "Update recipe by id", admin: true, params: idParam, body: jsonBody(recipeUpdateSchema()), status: http.StatusOK, result: recipeSchema()},
		{method: http.MethodPut, path: "/recipe/recipe_id/{recipe_id}", summary: "Update recipe by recipe_id", admin: true, params: recipeIDParam, body: jsonBody(recipeUpdateSchema()), status: http.StatusOK, result: recipeSchema()},
		{method: http.MethodDelete, path: "/recipe/id/{id}", summary: "Delete recipe by id", admin: true, params: idParam, status: http.StatusOK, result: resultSchema()},
		{method: http.MethodDelete, path: "/recipe/recipe_id/{recipe_id}", summary: "Delete recipe by recipe_id", admin: true, params: recipeIDParam, status: http.StatusOK, result: resultSchema()},

		{method: http.MethodGet, path: "/errors", summary: "List error messages", status: http.StatusOK, result: openapi3.NewArraySchema().WithItems(errorMessageSchema())},
		{method: http.MethodGet, path: "/error/id/{id}", summary: "Get error message by id", params: idParam, status: http.StatusOK, result: errorMessageSchema()},
		{method: http.MethodGet, path: "/errors/recipe_id/{recipe_id}", summary: "List error messages for a recipe", params: recipeIDParam, status: http.StatusOK, result: openapi3.NewArraySchema().WithItems(errorMessageSchema())},
		{method: http.MethodDelete, path: "/error/id/{id}", summary: "Delete error message by id", admin: true, params: idParam, status: http.StatusOK, result: resultSchema()},

		{method: http.MethodPost, path: "/recipe/error", summary: "Handle recipe errors", admin: true,
			params: openapi3.Parameters{queryParam("recipe_id", true), queryParam("error", false)}, status: http.StatusOK, result: resultSchema()},
		{method: http.MethodPost, path: "/recipe/trust/update", summary: "Update recipe trust info", admin: true,
			params: openapi3.Parameters{queryParam("id", true), queryParam("user_id", false), queryParam("channel", false)}, status: http.StatusOK, result: resultSchema()},
		{method: http.MethodPost, path: "/recipe/trust/deny", summary: "Do not approve trust changes", admin: true,
			params: openapi3.Parameters{queryParam("id", true)}, status: http.StatusOK, result: resultSchema()},
		{method: http.MethodPost, path: "/recipe/trust/update/success", summary: "Trust info was updated successfully", admin: true,
			params: openapi3.Parameters{queryParam("recipe_id", false), queryParam("msg", false), queryParam("error_id", true)}, status: http.StatusOK, result: resultSchema()},
		{method: http.MethodPost, path: "/recipe/trust/update/failed", summary: "Trust info failed to update", admin: true,
			params: openapi3.Parameters{queryParam("recipe_id", true), queryParam("msg", false), queryParam("error_id", false)}, status: http.StatusOK, result: resultSchema()},
		{method: http.MethodPost, path: "/recipe/trust/verify/failed", summary: "Parent trust info has changed", admin: true,
			body: jsonBody(openapi3.NewObjectSchema().
				WithProperty("recipe_id", openapi3.NewStringSchema()).
				WithProperty("msg", openapi3.NewStringSchema()).
				WithRequired([]string{"recipe_id"})),
			status: http.StatusOK, result: resultSchema()},

		{method: http.MethodPost, path: "/slack/receive", summary: "Slack interactivity callback", public: true,
			body:   formBody(openapi3.NewObjectSchema().WithProperty("payload", openapi3.NewStringSchema())),
			status: http.StatusOK},
		{method: http.MethodPost, path: "/auth/token", summary: "Exchange credentials for a bearer token", public: true,
			body: formBody(openapi3.NewObjectSchema().
				WithProperty("username", openapi3.NewStringSchema()).
				WithProperty("password", openapi3.NewStringSchema())),
			status: http.StatusOK,
			result: openapi3.NewObjectSchema().
				WithProperty("access_token", openapi3.NewStringSchema()).
				WithProperty("token_type", openapi3.NewStringSchema()).
				WithProperty("expires_at", openapi3.NewDateTimeSchema())},
		{method: http.MethodGet, path: "/health", summary: "Liveness probe", public: true, status: http.StatusOK},
		{method: http.MethodGet, path: "/version", summary: "Build version", public: true, status: http.StatusOK,
			result: openapi3.NewObjectSchema().
				WithProperty("version", openapi3.NewStringSchema()).
				WithProperty("nodeInstanceID", openapi3.NewStringSchema())},
	}
}

func (rt route) operation() *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = rt.summary
	op.Parameters = rt.params
	op.RequestBody = rt.body

	ok := openapi3.NewResponse().WithDescription(http.StatusText(rt.status))
	if rt.result != nil {
		ok = ok.WithJSONSchema(rt.result)
	}
	failure := openapi3.NewResponse().WithDescription("Error").WithJSONSchema(errorBodySchema())
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(rt.status, &openapi3.ResponseRef{Value: ok}),
		openapi3.WithName("default", failure),
	)
	if !rt.public {
		op.Security = openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(bearerScheme))
	}
	if rt.admin {
		op.Description = "Requires the admin role."
	}
	return op
}

// OpenAPIDocument describes every route New registers.
func OpenAPIDocument(ctx context.Context, version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "PkgBot API",
			Description: "Recipe records and the recipe trust workflow.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
	for _, rt := range routes() {
		doc.AddOperation(rt.path, rt.method, rt.operation())
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}
