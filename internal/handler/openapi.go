package handler

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the gateway's own OpenAPI 3 document. The document
// is assembled once; the route surface is static.
type OpenAPIHandler struct {
	doc *openapi3.T
}

// NewOpenAPIHandler builds the gateway spec document.
func NewOpenAPIHandler(version string) *OpenAPIHandler {
	return &OpenAPIHandler{doc: buildSpec(version)}
}

// Serve writes the OpenAPI document as JSON.
// GET /openapi.json
func (h *OpenAPIHandler) Serve(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.doc)
}

func buildSpec(version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "PXR Block Gateway",
			Description: "Inter-block API gateway: identifies the caller, resolves catalogs, enforces authorization, acquires API tokens, and forwards calls between blocks.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
	}

	doc.Paths.Set("/gateway/api", proxyPathItem(
		"Forward a call to another block (general route)", forwardParameters()))
	doc.Paths.Set("/gateway/personal/api", proxyPathItem(
		"Forward a call to another block (personal route)", forwardParameters()))
	doc.Paths.Set("/gateway/reverse/api", proxyPathItem(
		"Dispatch an already-tokenized inbound call to a local service", reverseParameters()))

	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: operation("Liveness probe", nil),
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: operation("Readiness probe", nil),
	})

	return doc
}

func proxyPathItem(summary string, params openapi3.Parameters) *openapi3.PathItem {
	return &openapi3.PathItem{
		Get:    operation(summary, params),
		Post:   operation(summary, params),
		Put:    operation(summary, params),
		Delete: operation(summary, params),
	}
}

func operation(summary string, params openapi3.Parameters) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = summary
	op.Parameters = params
	op.Responses = openapi3.NewResponses()
	return op
}

func forwardParameters() openapi3.Parameters {
	return openapi3.Parameters{
		queryParam("path", "Destination API path on the callee block", true),
		queryParam("block", "Destination block code (defaults to the operator's home block)", false),
		queryParam("from_path", "Explicit caller API path; omitting it applies the static permission matrix", false),
		queryParam("from_block", "Caller block code (defaults to the operator's home block)", false),
	}
}

func reverseParameters() openapi3.Parameters {
	return openapi3.Parameters{
		queryParam("path", "Destination path on a locally hosted service", true),
		queryParam("from_path", "Caller API path used for token certification", false),
	}
}

func queryParam(name, description string, required bool) *openapi3.ParameterRef {
	p := openapi3.NewQueryParameter(name).
		WithDescription(description).
		WithSchema(openapi3.NewStringSchema())
	p.Required = required
	return &openapi3.ParameterRef{Value: p}
}
