package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
)

// StandingsDependencies defines the interface for ranking queries.
type StandingsDependencies interface {
	Standings(ctx context.Context, q service.StandingsQuery) (service.Standings, error)
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps StandingsDependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

// HandleGetStandings handles GET /standings?kind=&league=&month=&scope= requests.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Standings(r.Context(), q)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseQuery(v url.Values) (service.StandingsQuery, error) {
	return buildQuery(v.Get("kind"), v.Get("league"), v.Get("month"), v.Get("scope"))
}

func buildQuery(kind, league, month, scope string) (service.StandingsQuery, error) {
	k, err := model.ParseKind(strings.TrimSpace(kind))
	if err != nil {
		return service.StandingsQuery{}, err
	}
	m, err := model.ParseMonthKey(strings.TrimSpace(month))
	if err != nil {
		return service.StandingsQuery{}, err
	}
	return service.StandingsQuery{
		Kind:    k,
		League:  strings.TrimSpace(league),
		Month:   m,
		ScopeID: strings.TrimSpace(scope),
	}, nil
}
