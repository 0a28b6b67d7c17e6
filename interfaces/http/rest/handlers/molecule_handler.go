package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/molsearch/molsearch/domain/chem"
	"github.com/molsearch/molsearch/domain/molecule"
	"github.com/molsearch/molsearch/pkg/apperrors"
	"github.com/molsearch/molsearch/pkg/common"
	"github.com/molsearch/molsearch/pkg/observability"
	"github.com/molsearch/molsearch/pkg/utils"
)

// maxUploadBytes bounds the molecules upload body
const maxUploadBytes = 10 << 20

// defaultUpload seeds the store when POST /molecules/ arrives without
// a file, a convenience kept from day one for trying the search out.
var defaultUpload = []string{
	"CCO", "c1ccccc1", "Cc1ccccc1", "C(=O)O", "CC(=O)O", "CC(=O)Oc1ccccc1C(=O)O",
}

// MoleculeHandler handles molecule storage HTTP requests
type MoleculeHandler struct {
	store   molecule.Repository
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewMoleculeHandler creates a molecule handler
func NewMoleculeHandler(
	store molecule.Repository,
	metrics *observability.Collector,
	logger *zap.Logger,
) *MoleculeHandler {
	return &MoleculeHandler{store: store, metrics: metrics, logger: logger}
}

// UpdateMoleculeRequest is the body of PUT /smiles/{id}
type UpdateMoleculeRequest struct {
	Identifier int64  `json:"identifier" validate:"required,gt=0"`
	Smiles     string `json:"smiles" validate:"required,max=2778"`
}

// List handles GET /smiles/
func (h *MoleculeHandler) List(w http.ResponseWriter, r *http.Request) {
	page := common.ExtractPageParams(r)

	molecules, err := h.store.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("failed to list molecules", zap.Error(err))
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, molecules)
}

// Create handles POST /smiles/?smiles=
func (h *MoleculeHandler) Create(w http.ResponseWriter, r *http.Request) {
	smiles := r.URL.Query().Get("smiles")
	if smiles == "" {
		common.RespondError(w, http.StatusBadRequest, "smiles query parameter is required")
		return
	}
	if len(smiles) > molecule.MaxSmilesLen {
		common.RespondError(w, http.StatusBadRequest,
			fmt.Sprintf("smiles must be at most %d characters", molecule.MaxSmilesLen))
		return
	}
	if _, err := chem.Parse(smiles); err != nil {
		common.RespondAppError(w, apperrors.NewInvalidStructureError(smiles))
		return
	}

	if _, err := h.store.Insert(r.Context(), smiles); err != nil {
		if !apperrors.IsConflict(err) {
			h.logger.Error("failed to insert molecule", zap.Error(err))
		}
		common.RespondAppError(w, err)
		return
	}
	h.metrics.MoleculesCreated.Inc()

	created, err := h.store.LastBySmiles(r.Context(), smiles)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, created)
}

// Get handles GET /smiles/{id}
func (h *MoleculeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	m, err := h.store.Get(r.Context(), id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, m)
}

// Update handles PUT /smiles/{id}: update in place, inserting under
// the given identifier when no row exists yet.
func (h *MoleculeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateMoleculeRequest
	if err := common.ParseJSONBody(r, &req, maxUploadBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if id != req.Identifier {
		common.RespondError(w, http.StatusBadRequest,
			fmt.Sprintf("The molecule identifiers do not match. %d != %d", id, req.Identifier))
		return
	}
	if _, err := chem.Parse(req.Smiles); err != nil {
		common.RespondAppError(w, apperrors.NewInvalidStructureError(req.Smiles))
		return
	}

	err := h.store.Update(r.Context(), id, req.Smiles)
	if apperrors.IsNotFound(err) {
		_, err = h.store.InsertWithID(r.Context(), id, req.Smiles)
	}
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	m, err := h.store.Get(r.Context(), id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /smiles/{id}
func (h *MoleculeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	removed, err := h.store.Delete(r.Context(), id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	h.metrics.MoleculesDeleted.Inc()
	common.RespondJSON(w, http.StatusOK, removed)
}

// Upload handles POST /molecules/: a text file with one SMILES string
// per line. Entries are trimmed, de-duplicated and parse-checked;
// unparsable lines are dropped, not errors. Without a file the
// built-in seed set is loaded.
func (h *MoleculeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	lines, err := h.readUpload(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	smiles := make([]string, 0, len(lines))
	seen := make(map[string]bool)
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || seen[s] {
			continue
		}
		if _, err := chem.Parse(s); err != nil {
			continue
		}
		seen[s] = true
		smiles = append(smiles, s)
	}
	if len(smiles) == 0 {
		common.RespondError(w, http.StatusBadRequest,
			"Upload a text file with molecules as SMILES strings.")
		return
	}

	if _, err := h.store.Insert(r.Context(), smiles...); err != nil {
		if !apperrors.IsConflict(err) {
			h.logger.Error("failed to insert uploaded molecules", zap.Error(err))
		}
		common.RespondAppError(w, err)
		return
	}
	h.metrics.MoleculesCreated.Add(float64(len(smiles)))

	inserted, err := h.store.Last(r.Context(), len(smiles))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, inserted)
}

// readUpload extracts the upload lines: the file when one was sent,
// the seed set otherwise. Non-text files are a bad request.
func (h *MoleculeHandler) readUpload(r *http.Request) ([]string, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return defaultUpload, nil
	}
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid upload: " + err.Error())
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasSuffix(header.Filename, ".txt") || !strings.HasPrefix(contentType, "text/plain") {
		return nil, apperrors.NewValidationError(
			"Upload a text file with molecules as SMILES strings.")
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid upload: " + err.Error())
	}
	return strings.Split(strings.ReplaceAll(string(raw), "\r", ""), "\n"), nil
}

func (h *MoleculeHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "Invalid molecule identifier")
		return 0, false
	}
	return id, true
}
