package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/readalong/readalong-server/internal/http/response"
)

// handleBackup streams a snapshot of the timing store as a download.
// GET /api/v1/admin/backup
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("readalong-%s.backup", time.Now().Format("2006-01-02-150405"))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if _, err := s.contentService.Backup(r.Context(), w); err != nil {
		// Headers are already out; all we can do is log and cut the stream.
		s.logger.Error("backup stream failed", "error", err)
	}
}

// handleRestore loads a backup stream and reactivates the restored
// content.
// POST /api/v1/admin/restore
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.contentService.Restore(r.Context(), r.Body); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"status": "restored"}, s.logger)
}
