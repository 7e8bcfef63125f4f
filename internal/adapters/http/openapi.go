package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

//go:embed openapi.yaml
var openAPISpec []byte

// requestValidator checks incoming requests against the embedded contract.
type requestValidator struct {
	doc  *openapi3.T
	json []byte
}

func newRequestValidator() (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode openapi spec: %w", err)
	}
	return &requestValidator{doc: doc, json: encoded}, nil
}

// Validate returns nil for paths the contract does not describe.
func (v *requestValidator) Validate(r *http.Request) error {
	pathItem := v.doc.Paths.Find(r.URL.Path)
	if pathItem == nil {
		return nil
	}
	operation := pathItem.GetOperation(r.Method)
	if operation == nil {
		return nil
	}
	route := &routers.Route{
		Spec:      v.doc,
		Path:      r.URL.Path,
		PathItem:  pathItem,
		Method:    r.Method,
		Operation: operation,
	}
	return openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request: r,
		Route:   route,
		Options: &openapi3filter.Options{MultiError: false},
	})
}

func (v *requestValidator) serveSpec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v.json)
}
