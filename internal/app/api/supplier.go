package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"aws-sqs-http-gateway/internal/pkg/httpclient"
	"aws-sqs-http-gateway/internal/pkg/supplier"
)

type customSupplierQuery struct {
	SupplierCode string `validate:"required,alphanum,max=32"`
}

func (a *API) supplierGlobal(w http.ResponseWriter, r *http.Request) {
	resp, err := supplier.New().Get(r.Context(), "/get")
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}

func (a *API) supplierLocal(w http.ResponseWriter, r *http.Request) {
	client := supplier.New()
	if err := client.Open(); err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	defer client.Close()

	resp, err := client.Get(r.Context(), "/get", httpclient.Name("LOCAL"))
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}

func (a *API) supplierCustomCode(w http.ResponseWriter, r *http.Request) {
	q := customSupplierQuery{SupplierCode: r.URL.Query().Get("supplier_code")}
	if err := a.Validator.Struct(q); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "supplier_code: "+err.Error())
		return
	}

	client := supplier.New()
	if err := client.Open(); err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	defer client.Close()

	resp, err := client.Get(r.Context(), "/get",
		httpclient.Name("LOCAL"), httpclient.Tag("CSC"), supplier.WithSupplierCode(q.SupplierCode))
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}

// supplierRegistry calls a supplier defined in the suppliers file.
func (a *API) supplierRegistry(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	def, ok := a.Registry.Lookup(code)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown supplier: "+code)
		return
	}

	var resp *httpclient.Response
	err := supplier.New(supplier.Options(def)...).Scoped(func(c *httpclient.Client) error {
		var err error
		resp, err = c.Get(r.Context(), "/get", httpclient.Name("REGISTRY"))
		return err
	})
	if err != nil {
		writeUpstreamError(r.Context(), w, err)
		return
	}
	writeUpstream(w, resp)
}
