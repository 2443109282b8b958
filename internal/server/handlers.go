package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/ai"
	"github.com/seedkeeper/seedkeeper/pkg/export"
	"github.com/seedkeeper/seedkeeper/pkg/merge"
	"github.com/seedkeeper/seedkeeper/pkg/populate"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Debugf("[server] encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section == "" {
		writeJSON(w, http.StatusOK, s.Registry.Fields())
		return
	}
	if !s.Registry.HasSection(section) {
		writeError(w, http.StatusBadRequest, errors.New("unknown section"))
		return
	}
	writeJSON(w, http.StatusOK, s.Registry.AIFields(section))
}

func (s *Server) handleListSeeds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a number"))
			return
		}
		opts.Limit = limit
	}

	seeds, err := s.DB.ListSeeds(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, seeds)
}

func (s *Server) handleGetSeed(w http.ResponseWriter, r *http.Request) {
	seed, err := s.DB.GetSeed(r.Context(), r.PathValue("uid"))
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seed)
}

// SeedRequest carries a form snapshot to store. AIChanges is the change set
// of the last populate, used to attribute changes in the log.
type SeedRequest struct {
	State     merge.FormState `json:"state"`
	AIChanges merge.ChangeSet `json:"ai_changes,omitempty"`
}

func (s *Server) handleCreateSeed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	seed := storage.SeedFromState("", req.State)
	if err := s.DB.CreateSeed(r.Context(), seed, req.AIChanges); err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seed)
}

func (s *Server) handleUpdateSeed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	seed := storage.SeedFromState(r.PathValue("uid"), req.State)
	changes, err := s.DB.UpdateSeed(r.Context(), seed, req.AIChanges)
	if err != nil {
		s.storageError(w, err)
		return
	}
	if changes == nil {
		changes = []storage.Change{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"seed": seed, "changes": changes})
}

func (s *Server) handleDeleteSeed(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.DeleteSeed(r.Context(), r.PathValue("uid")); err != nil {
		s.storageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrNameRequired):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// PopulateRequest asks the AI to fill a form. When SeedName is empty it is
// taken from the state's seed_name, and likewise for VarietyName. UID loads
// the stored seed as the state when State is absent.
type PopulateRequest struct {
	FormID      string           `json:"form_id"`
	SeedName    string           `json:"seed_name"`
	VarietyName string           `json:"variety_name"`
	Section     string           `json:"section"`
	UID         string           `json:"uid"`
	State       *merge.FormState `json:"state"`
}

func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	var req PopulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.FormID) == "" {
		writeError(w, http.StatusBadRequest, errors.New("form_id is required"))
		return
	}

	state := merge.NewFormState()
	switch {
	case req.State != nil:
		state = req.State.Clone()
	case req.UID != "":
		seed, err := s.DB.GetSeed(r.Context(), req.UID)
		if err != nil {
			s.storageError(w, err)
			return
		}
		state = seed.FormState()
	}

	q := ai.Query{
		SeedName:    utils.FirstNonEmpty(req.SeedName, state.String("seed_name")),
		VarietyName: utils.FirstNonEmpty(req.VarietyName, state.String("variety_name")),
		Section:     req.Section,
	}

	// A dropped connection does not cancel the lookup.
	ctx := context.WithoutCancel(r.Context())
	res, err := s.Sessions.Populate(ctx, req.FormID, populate.Request{Query: q, State: state})
	if err != nil {
		var terr *ai.TransportError
		switch {
		case errors.As(err, &terr):
			writeError(w, http.StatusBadGateway, err)
		case errors.Is(err, populate.ErrInFlight), errors.Is(err, populate.ErrStaleResponse):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type abandonRequest struct {
	FormID string `json:"form_id"`
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	var req abandonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"abandoned": s.Sessions.Abandon(req.FormID)})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var (
		changes []storage.Change
		err     error
	)
	if uid := q.Get("uid"); uid != "" {
		changes, err = s.DB.ListSeedChanges(r.Context(), uid, limit)
	} else {
		changes, err = s.DB.ListRecentChanges(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	seeds, err := s.DB.ListSeeds(r.Context(), storage.ListOptions{Search: q.Get("search"), Category: q.Get("category")})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="seeds.csv"`)
	if err := export.WriteCSV(w, s.Registry, seeds); err != nil {
		utils.Log.Errorf("[server] csv export: %v", err)
	}
}
