package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/readalong/readalong-server/internal/content"
	"github.com/readalong/readalong-server/internal/http/response"
	"github.com/readalong/readalong-server/internal/timing"
)

// LoadContentRequest is the request body for loading content. Either an
// inline timing collection or a path to a timing artifact on disk must
// be provided.
type LoadContentRequest struct {
	Timing      *timing.Collection `json:"timing" validate:"required_without=TimingPath"`
	Content     *content.Artifact  `json:"content"`
	TimingPath  string             `json:"timingPath" validate:"required_without=Timing"`
	ContentPath string             `json:"contentPath"`
}

// handleLoadContent loads a timing collection for a content ID.
// POST /api/v1/content/{id}
func (s *Server) handleLoadContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contentID := chi.URLParam(r, "id")

	var req LoadContentRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	var err error
	if req.Timing != nil {
		err = s.contentService.LoadCollection(ctx, contentID, req.Timing, req.Content)
	} else {
		err = s.contentService.LoadFromFile(ctx, contentID, req.TimingPath, req.ContentPath)
	}
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, map[string]string{"contentId": contentID}, s.logger)
}

// handleUnloadContent unloads a content and removes its stored data.
// DELETE /api/v1/content/{id}
func (s *Server) handleUnloadContent(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")

	if err := s.contentService.Unload(r.Context(), contentID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleListContent lists every known content with its state.
// GET /api/v1/content
func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.contentService.ListContent(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, summaries, s.logger)
}

// handleGetTiming returns the stored timing collection.
// GET /api/v1/content/{id}/timing
func (s *Server) handleGetTiming(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")

	c, err := s.contentService.GetTiming(r.Context(), contentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, c, s.logger)
}

// handleGetContent returns the stored display artifact.
// GET /api/v1/content/{id}/content
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")

	artifact, err := s.contentService.GetContent(r.Context(), contentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, artifact, s.logger)
}

// handleResolvePosition maps a playback position to word and sentence
// indexes without going through the update channel.
// GET /api/v1/content/{id}/resolve?position=<ms>
func (s *Server) handleResolvePosition(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")

	positionParam := r.URL.Query().Get("position")
	if positionParam == "" {
		response.BadRequest(w, "position query parameter is required", s.logger)
		return
	}
	positionMs, err := strconv.ParseInt(positionParam, 10, 64)
	if err != nil {
		response.BadRequest(w, "position must be an integer number of milliseconds", s.logger)
		return
	}

	pos, err := s.contentService.Resolve(r.Context(), contentID, positionMs)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, pos, s.logger)
}

// UpdatePositionRequest is the request body for position updates.
type UpdatePositionRequest struct {
	PositionMs int64 `json:"positionMs"`
}

// handleUpdatePosition feeds a playback position into the update channel.
// Highlight changes fan out to SSE subscribers.
// POST /api/v1/playback/{id}/position
func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")

	var req UpdatePositionRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.contentService.UpdatePosition(r.Context(), contentID, req.PositionMs); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Accepted(w, s.logger)
}

// handleSearch finds sentences matching a query.
// GET /api/v1/search?q=<query>&content=<id>&limit=<n>
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		response.BadRequest(w, "q query parameter is required", s.logger)
		return
	}

	contentID := r.URL.Query().Get("content")

	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 || parsed > 100 {
			response.BadRequest(w, "limit must be an integer between 1 and 100", s.logger)
			return
		}
		limit = parsed
	}

	hits, err := s.contentService.Search(r.Context(), query, contentID, limit)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, hits, s.logger)
}
