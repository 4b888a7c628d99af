package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jmylchreest/locastarr/internal/guide"
	"github.com/jmylchreest/locastarr/internal/models"
	"github.com/jmylchreest/locastarr/internal/repository"
)

// GuideHandler serves the generated XMLTV document and exposes refresh
// control and history endpoints.
type GuideHandler struct {
	refresher *guide.Refresher
	runs      repository.RefreshRunRepository
	logger    *slog.Logger
}

// NewGuideHandler creates a new guide handler.
func NewGuideHandler(refresher *guide.Refresher) *GuideHandler {
	return &GuideHandler{
		refresher: refresher,
		logger:    slog.Default(),
	}
}

// WithRunRepository sets the refresh run repository for history queries.
func (h *GuideHandler) WithRunRepository(runs repository.RefreshRunRepository) *GuideHandler {
	h.runs = runs
	return h
}

// WithLogger sets the logger for the handler.
func (h *GuideHandler) WithLogger(logger *slog.Logger) *GuideHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// RegisterFileServer registers the raw guide document route.
// Routes:
//   - GET /guide.xml - Serve the most recently written XMLTV document
func (h *GuideHandler) RegisterFileServer(router *chi.Mux) {
	router.Get("/guide.xml", h.serveGuide)
}

// serveGuide serves the guide document from disk. Before the first
// successful refresh no document exists and the route returns 404.
func (h *GuideHandler) serveGuide(w http.ResponseWriter, r *http.Request) {
	path := h.refresher.OutputPath()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	http.ServeFile(w, r, path)
}

// Register registers the guide API endpoints.
func (h *GuideHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "triggerGuideRefresh",
		Method:        "POST",
		Path:          "/api/v1/guide/refresh",
		Summary:       "Trigger a guide refresh",
		Description:   "Requests an immediate guide refresh. If a refresh is already running the request coalesces with it.",
		Tags:          []string{"Guide"},
		DefaultStatus: http.StatusAccepted,
	}, h.TriggerRefresh)

	huma.Register(api, huma.Operation{
		OperationID: "getGuideStatus",
		Method:      "GET",
		Path:        "/api/v1/guide/status",
		Summary:     "Get guide refresher status",
		Description: "Returns the refresher state and last refresh outcome",
		Tags:        []string{"Guide"},
	}, h.GetStatus)

	huma.Register(api, huma.Operation{
		OperationID: "listGuideRuns",
		Method:      "GET",
		Path:        "/api/v1/guide/runs",
		Summary:     "List recent guide refresh runs",
		Description: "Returns the most recent refresh cycles, newest first",
		Tags:        []string{"Guide"},
	}, h.ListRuns)
}

// TriggerRefreshInput is the input for the refresh trigger endpoint.
type TriggerRefreshInput struct{}

// TriggerRefreshOutput is the output for the refresh trigger endpoint.
type TriggerRefreshOutput struct {
	Body TriggerRefreshResponse
}

// TriggerRefreshResponse reports the refresher state after the trigger.
type TriggerRefreshResponse struct {
	State string `json:"state" doc:"Refresher state (idle or refreshing)"`
}

// TriggerRefresh requests an immediate refresh cycle.
func (h *GuideHandler) TriggerRefresh(ctx context.Context, input *TriggerRefreshInput) (*TriggerRefreshOutput, error) {
	h.refresher.Trigger()
	return &TriggerRefreshOutput{
		Body: TriggerRefreshResponse{
			State: string(h.refresher.State()),
		},
	}, nil
}

// GetStatusInput is the input for the status endpoint.
type GetStatusInput struct{}

// GetStatusOutput is the output for the status endpoint.
type GetStatusOutput struct {
	Body GuideStatusResponse
}

// GuideStatusResponse describes the refresher's current state.
type GuideStatusResponse struct {
	State       string `json:"state" doc:"Refresher state (idle or refreshing)"`
	LastOutcome string `json:"last_outcome,omitempty" doc:"Outcome of the most recent cycle"`
	LastSuccess string `json:"last_success,omitempty" doc:"Time of the last successful refresh (RFC3339)"`
}

// GetStatus returns the refresher state.
func (h *GuideHandler) GetStatus(ctx context.Context, input *GetStatusInput) (*GetStatusOutput, error) {
	resp := GuideStatusResponse{
		State:       string(h.refresher.State()),
		LastOutcome: string(h.refresher.LastOutcome()),
	}
	if last := h.refresher.LastSuccess(); !last.IsZero() {
		resp.LastSuccess = last.UTC().Format(time.RFC3339)
	}
	return &GetStatusOutput{Body: resp}, nil
}

// ListRunsInput is the input for the run history endpoint.
type ListRunsInput struct {
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum number of runs to return"`
}

// ListRunsOutput is the output for the run history endpoint.
type ListRunsOutput struct {
	Body ListRunsResponse
}

// ListRunsResponse holds the recent refresh runs.
type ListRunsResponse struct {
	Runs []*models.RefreshRun `json:"runs"`
}

// ListRuns returns the most recent refresh runs.
func (h *GuideHandler) ListRuns(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
	if h.runs == nil {
		return &ListRunsOutput{Body: ListRunsResponse{Runs: []*models.RefreshRun{}}}, nil
	}

	runs, err := h.runs.GetRecent(ctx, input.Limit)
	if err != nil {
		h.logger.Error("failed to list refresh runs", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("failed to list refresh runs")
	}
	if runs == nil {
		runs = []*models.RefreshRun{}
	}
	return &ListRunsOutput{Body: ListRunsResponse{Runs: runs}}, nil
}
