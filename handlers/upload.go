package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/subhubsl/subhub/lib/drive"
)

// maxUploadMemory is the multipart parse buffer; bigger files spill to disk.
const maxUploadMemory = 32 << 20

type uploadPageData struct {
	baseData
	Error string
}

// HandleUploadPage renders the upload form. Without a valid storage token
// the visitor is bounced into the consent flow before they can start.
func HandleUploadPage(a *drive.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.Token(r.Context()); errors.Is(err, drive.ErrAuthRequired) {
			http.Redirect(w, r, "/auth/google", http.StatusSeeOther)
			return
		}
		renderPage(w, r, "upload.html", uploadPageData{baseData: newBaseData(r)})
	}
}

// HandleDriveConsent starts the interactive OAuth flow.
func HandleDriveConsent(a *drive.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, a.ConsentURL("upload"), http.StatusSeeOther)
	}
}

// HandleDriveCallback finishes the consent flow and returns to the upload
// page.
func HandleDriveCallback(a *drive.Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			renderError(w, r, "Authorization was cancelled.", http.StatusBadRequest)
			return
		}
		if err := a.Exchange(r.Context(), code); err != nil {
			slog.Error("Failed to exchange consent code", slog.Any("error", err))
			renderError(w, r, "Authorization failed. Please try again.", http.StatusBadGateway)
			return
		}
		http.Redirect(w, r, "/upload", http.StatusSeeOther)
	}
}

// HandleUploadStart accepts the file, registers a job, and streams it to
// cloud storage in the background. The response carries the job id for
// progress polling.
func HandleUploadStart(u *drive.Uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Refuse to even spool the file when no token is available.
		if _, err := u.Auth().Token(r.Context()); errors.Is(err, drive.ErrAuthRequired) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":    "authorization required",
				"auth_url": "/auth/google",
			})
			return
		}

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid upload request"})
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
			return
		}
		defer file.Close()

		folder := r.FormValue("folder")
		if folder == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "folder is required"})
			return
		}

		// Spool to disk first: the request body dies with this handler, but
		// the transfer outlives it.
		tmp, err := os.CreateTemp("", "subhub-upload-*")
		if err != nil {
			slog.Error("Failed to create spool file", slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "upload failed to start"})
			return
		}
		if _, err := tmp.ReadFrom(file); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			slog.Error("Failed to spool upload", slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "upload failed to start"})
			return
		}
		if _, err := tmp.Seek(0, 0); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "upload failed to start"})
			return
		}

		jobID := uuid.NewString()
		job, err := u.Registry().Start(jobID, header.Filename, folder, header.Size)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}

		go func() {
			defer func() {
				tmp.Close()
				os.Remove(tmp.Name())
			}()
			if err := u.Upload(context.Background(), job, tmp); err != nil {
				slog.Error("Upload failed", slog.String("job", jobID), slog.Any("error", err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
	}
}

// HandleUploadStatus reports a job's current snapshot.
func HandleUploadStatus(u *drive.Uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := u.Registry().Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown upload"})
			return
		}
		writeJSON(w, http.StatusOK, job.Snapshot())
	}
}
