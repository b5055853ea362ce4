package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/ceremony"
)

// CeremonyDependencies defines the interface for ceremony control.
type CeremonyDependencies interface {
	StartCeremony(ctx context.Context, req service.StartRequest) (ceremony.State, ceremony.Step, error)
	Advance(ctx context.Context) (ceremony.Step, ceremony.State, error)
	Skip(ctx context.Context) (ceremony.Step, ceremony.State, error)
	End(ctx context.Context) (ceremony.Step, ceremony.State, error)
	Ceremony(since int) (service.CeremonyView, error)
}

// CeremonyHandler handles ceremony requests.
type CeremonyHandler struct {
	deps CeremonyDependencies
}

// NewCeremonyHandler creates a new ceremony handler.
func NewCeremonyHandler(deps CeremonyDependencies) *CeremonyHandler {
	return &CeremonyHandler{deps: deps}
}

// startRequest is the body of POST /ceremony/start.
type startRequest struct {
	Kind   string `json:"kind"`
	League string `json:"league"`
	Month  string `json:"month"`
	Scope  string `json:"scope"`
	Force  bool   `json:"force"`
}

type stepResponse struct {
	Step  ceremony.Step  `json:"step"`
	State ceremony.State `json:"state"`
}

// HandleStart handles POST /ceremony/start requests.
func (h *CeremonyHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_ceremony"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	q, err := buildQuery(body.Kind, body.League, body.Month, body.Scope)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	state, step, err := h.deps.StartCeremony(r.Context(), service.StartRequest{StandingsQuery: q, Force: body.Force})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, stepResponse{Step: step, State: state})
}

// HandleAdvance handles POST /ceremony/advance requests. A busy or finished
// ceremony answers 200 with an ignored step.
func (h *CeremonyHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	h.handleStep(w, r, "api.advance_ceremony", h.deps.Advance)
}

// HandleSkip handles POST /ceremony/skip requests.
func (h *CeremonyHandler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	h.handleStep(w, r, "api.skip_ceremony", h.deps.Skip)
}

// HandleEnd handles POST /ceremony/end requests.
func (h *CeremonyHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	h.handleStep(w, r, "api.end_ceremony", h.deps.End)
}

func (h *CeremonyHandler) handleStep(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fn func(context.Context) (ceremony.Step, ceremony.State, error),
) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	step, state, err := fn(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResponse{Step: step, State: state})
}

// HandleGetCeremony handles GET /ceremony?since=N requests.
func (h *CeremonyHandler) HandleGetCeremony(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ceremony"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	since := 0
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("since must be a non-negative integer")))
			return
		}
		since = n
	}
	view, err := h.deps.Ceremony(since)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
