package api

import (
	"net/http"
	"strings"

	"github.com/ignite/audience-feasibility/internal/catalog"
	"github.com/ignite/audience-feasibility/internal/feasibility"
	"github.com/ignite/audience-feasibility/internal/pkg/httputil"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	feasibility FeasibilityChecker
	catalog     CatalogSearcher
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		feasibility: deps.Feasibility,
		catalog:     deps.Catalog,
	}
}

// CheckFeasibility evaluates a study request.
//
//	POST /v1/study-requests/feasibility
func (h *Handlers) CheckFeasibility(w http.ResponseWriter, r *http.Request) {
	var req feasibility.Request
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondServiceError(w, r, err)
		return
	}

	result, err := h.feasibility.CheckOrNeutral(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, result)
}

// SearchKeywords lists keywords matching a term.
//
//	GET /v1/study-requests/keywords?term=voit&countryCode=FR
func (h *Handlers) SearchKeywords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	country := q.Get("countryCode")
	if country != "" {
		parsed, err := catalog.ParseCountry(country)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		country = parsed
	}

	keywords, err := h.catalog.SearchKeywords(r.Context(), q.Get("term"), country)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"keywords": keywords})
}

// SearchAssets lists apps and sites. With bundle parameters it returns those
// exact assets, otherwise it searches by term skipping excluded bundles.
//
//	GET /v1/study-requests/assets?term=candy&exclude=com.a,com.b
//	GET /v1/study-requests/assets?bundle=com.a&bundle=com.b
func (h *Handlers) SearchAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		assets []catalog.Asset
		err    error
	)
	if bundles := listParam(q["bundle"]); len(bundles) > 0 {
		assets, err = h.catalog.LookupAssets(r.Context(), bundles)
	} else {
		assets, err = h.catalog.SearchAssets(r.Context(), strings.TrimSpace(q.Get("term")), listParam(q["exclude"]))
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"assets": assets})
}

// listParam flattens repeated and comma-separated query values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
