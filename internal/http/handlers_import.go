package http

import (
	"io"
	"log/slog"
	"net/http"
	"os"
)

// handleImport accepts a multipart upload under the csvFile field, spools it
// to a temp file, and hands the path to the import service. The service owns
// the file from that point and removes it on every outcome.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "upload_too_large",
			"upload exceeds the size limit")
		return
	}

	file, header, err := r.FormFile("csvFile")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_file", "csvFile field is required")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp(s.uploadDir, "import-*.csv")
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	path := tmp.Name()

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(path)
		respondDomainError(r.Context(), w, err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		respondDomainError(r.Context(), w, err)
		return
	}

	uid := userID(r)
	slog.InfoContext(r.Context(), "Import upload received",
		"user_id", uid,
		"filename", header.Filename,
		"size_bytes", header.Size)

	report, err := s.imports.ImportFile(r.Context(), uid, path)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(uid)
	respondJSON(w, http.StatusOK, report)
}
