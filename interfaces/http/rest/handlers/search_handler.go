package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/molsearch/molsearch/application/search"
	"github.com/molsearch/molsearch/application/tasks"
	"github.com/molsearch/molsearch/domain/chem"
	"github.com/molsearch/molsearch/pkg/apperrors"
	"github.com/molsearch/molsearch/pkg/common"
)

// SearchHandler handles substructure search HTTP requests
type SearchHandler struct {
	searcher *search.Service
	tasks    *tasks.Service
	logger   *zap.Logger
}

// NewSearchHandler creates a search handler
func NewSearchHandler(searcher *search.Service, taskService *tasks.Service, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, tasks: taskService, logger: logger}
}

// Search handles GET /search/{query}: synchronous substructure search
// over all stored molecules, capped at max_num when positive, with
// no_cache dropping the snapshot and result entries first.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := pathQuery(r)

	maxNum, _ := strconv.Atoi(r.URL.Query().Get("max_num"))
	page := common.ExtractPageParams(r)
	noCache := common.ParseBoolParam(r.URL.Query().Get("no_cache"))

	resp, err := h.searcher.SearchMolecules(r.Context(), search.Params{
		Query:   query,
		MaxNum:  maxNum,
		Limit:   page.Limit,
		Offset:  page.Offset,
		NoCache: noCache,
	})
	if err != nil {
		if apperrors.Get(err) == nil {
			h.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		}
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// SubmitTask handles POST /search/{query}: checks the result cache,
// returning a cached payload directly, and otherwise queues the
// search on the worker pool and returns the task handle to poll.
func (h *SearchHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	query := pathQuery(r)

	if _, err := chem.Parse(query); err != nil {
		common.RespondAppError(w, apperrors.NewInvalidStructureError(query))
		return
	}

	submission, err := h.tasks.Submit(r.Context(), query)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, submission)
}

// pathQuery returns the decoded {query} path segment. SMILES strings
// carry URL-significant characters (#, %), so the segment arrives
// percent-encoded.
func pathQuery(r *http.Request) string {
	raw := chi.URLParam(r, "query")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
