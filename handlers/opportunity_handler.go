// handlers/opportunity_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gewnthar/samsync/database"
	"github.com/gewnthar/samsync/geo"
	"github.com/gewnthar/samsync/models"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// OpportunityPage is one page of a scope query.
type OpportunityPage struct {
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Items  []models.Opportunity `json:"items"`
}

// RegionSummary describes one portfolio and its sub-regions.
type RegionSummary struct {
	Region     string   `json:"region"`
	SubRegions []string `json:"sub_regions"`
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// parseScopeQuery reads the filter and paging parameters of the listing endpoint.
func parseScopeQuery(values url.Values) (models.ScopeQuery, error) {
	q := models.ScopeQuery{Limit: defaultPageSize}

	if v := values.Get("region"); v != "" {
		if strings.EqualFold(v, models.Unclassified) {
			q.Region = models.Unclassified
		} else {
			region, ok := geo.NormalizeRegion(v)
			if !ok {
				return q, fmt.Errorf("unknown region %q", v)
			}
			q.Region = region
		}
	}
	q.SubRegion = strings.TrimSpace(values.Get("sub_region"))
	if v := values.Get("country"); v != "" {
		v = strings.ToUpper(strings.TrimSpace(v))
		if _, ok := geo.LookupCountry(v); !ok && v != models.UnresolvedCountry {
			return q, fmt.Errorf("unknown country code %q", v)
		}
		q.CountryCode = v
	}

	for name, dst := range map[string]*time.Time{"since": &q.ModifiedSince, "posted_from": &q.PostedFrom, "posted_to": &q.PostedTo} {
		v := values.Get(name)
		if v == "" {
			continue
		}
		t, err := parseTimeParam(v)
		if err != nil {
			return q, fmt.Errorf("%s must be YYYY-MM-DD or RFC 3339", name)
		}
		*dst = t
	}

	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = min(n, maxPageSize)
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errors.New("offset must be a non-negative integer")
		}
		q.Offset = n
	}
	return q, nil
}

// ListOpportunities returns the stored opportunities of a region, sub-region or country.
// GET /api/opportunities?region=AFRICA&sub_region=Eastern%20Africa&since=2024-01-01&limit=50&offset=0
func (h *Handler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	q, err := parseScopeQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	total, err := h.store.CountByScope(r.Context(), q)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "failed to count opportunities")
		return
	}
	items, err := h.store.QueryByScope(r.Context(), q)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "failed to query opportunities")
		return
	}
	if items == nil {
		items = []models.Opportunity{}
	}
	respondWithJSON(w, r, http.StatusOK, OpportunityPage{Total: total, Limit: q.Limit, Offset: q.Offset, Items: items})
}

// GetOpportunity returns one opportunity by notice id.
// GET /api/opportunities/{noticeID}
func (h *Handler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "noticeID")
	opp, err := h.store.GetOpportunity(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondWithError(w, r, http.StatusNotFound, fmt.Sprintf("opportunity %s not found", id))
		return
	}
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "failed to load opportunity")
		return
	}
	respondWithJSON(w, r, http.StatusOK, opp)
}

// ListRegions returns the portfolios and their sub-regions.
// GET /api/regions
func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	var out []RegionSummary
	for _, region := range geo.Regions() {
		out = append(out, RegionSummary{Region: region, SubRegions: geo.SubRegions(region)})
	}
	respondWithJSON(w, r, http.StatusOK, out)
}

// RegionStats returns stored record counts per region and sub-region.
// GET /api/stats
func (h *Handler) RegionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.RegionStats(r.Context())
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "failed to compute region statistics")
		return
	}
	respondWithJSON(w, r, http.StatusOK, stats)
}
