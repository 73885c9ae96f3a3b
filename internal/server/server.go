// Package server exposes the scan pipeline over HTTP. Handlers are thin:
// they parse uploads, call into internal/scan, and write JSON verdicts.
package server

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath/safescan/internal/review"
	"github.com/brightpath/safescan/internal/scan"
	"github.com/brightpath/safescan/internal/scan/imagesafety"
	"github.com/brightpath/safescan/pkg/json"
)

// maxUploadBytes bounds multipart memory and request bodies.
const maxUploadBytes = 32 << 20

// Deps carries everything the HTTP surface needs. Reviews may be nil when no
// database is configured; the review endpoints then return 503.
type Deps struct {
	Log     *zap.Logger
	Scanner scan.FileScanner
	Scorer  *imagesafety.Scorer
	Reviews *review.Service
}

// Register mounts all endpoints on mux.
func Register(mux *http.ServeMux, deps Deps) {
	log := deps.Log.With(zap.String("module", "server"))

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Error("failed to write JSON response", zap.Error(err))
		}
	}

	writeJSONError := func(w http.ResponseWriter, msg string, err error, status int) {
		if err != nil {
			log.Error(msg, zap.Error(err))
		}
		writeJSON(w, status, map[string]string{"error": msg})
	}

	// readUpload pulls the "file" part out of a multipart request.
	readUpload := func(w http.ResponseWriter, r *http.Request) (scan.Request, bool) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSONError(w, "invalid multipart form", err, http.StatusBadRequest)
			return scan.Request{}, false
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, "missing file field", err, http.StatusBadRequest)
			return scan.Request{}, false
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeJSONError(w, "failed to read upload", err, http.StatusBadRequest)
			return scan.Request{}, false
		}
		return scan.Request{
			Data:     data,
			FileName: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
		}, true
	}

	mux.HandleFunc("/api/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		req, ok := readUpload(w, r)
		if !ok {
			return
		}
		verdict := deps.Scanner.ScanFile(r.Context(), req)
		log.Info("scan completed",
			zap.String("scan_id", verdict.ScanID),
			zap.String("file_name", req.FileName),
			zap.Bool("safe", verdict.Safe),
		)
		writeJSON(w, http.StatusOK, verdict)
	})

	mux.HandleFunc("/api/scan/image", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		req, ok := readUpload(w, r)
		if !ok {
			return
		}
		result := deps.Scorer.Check(r.Context(), req.Data)

		if result.FlaggedForReview && deps.Reviews != nil {
			reason := "image flagged by safety check"
			if len(result.Reasons) > 0 {
				reason = result.Reasons[0]
			}
			userID := r.FormValue("user_id")
			if _, err := deps.Reviews.Submit(r.Context(), scan.ContentHash(req.Data),
				req.FileName, userID, reason, result.Score); err != nil {
				log.Warn("failed to queue image for review", zap.Error(err))
			}
		}
		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("/api/scan/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Files []struct {
				FileName string `json:"file_name"`
				MimeType string `json:"mime_type"`
				Data     string `json:"data"`
			} `json:"files"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, "invalid JSON", err, http.StatusBadRequest)
			return
		}
		reqs := make([]scan.Request, len(body.Files))
		for i, f := range body.Files {
			data, err := base64.StdEncoding.DecodeString(f.Data)
			if err != nil {
				writeJSONError(w, "invalid base64 file data", err, http.StatusBadRequest)
				return
			}
			reqs[i] = scan.Request{Data: data, FileName: f.FileName, MimeType: f.MimeType}
		}
		verdicts := scan.ScanBatch(r.Context(), deps.Scanner, reqs)
		writeJSON(w, http.StatusOK, map[string]interface{}{"verdicts": verdicts})
	})

	mux.HandleFunc("/api/review/pending", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if deps.Reviews == nil {
			writeJSONError(w, "review queue not configured", nil, http.StatusServiceUnavailable)
			return
		}
		page, pageSize := pagination(r)
		records, total, err := deps.Reviews.ListPending(r.Context(), page, pageSize)
		if err != nil {
			writeJSONError(w, "failed to list pending reviews", err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"records": records,
			"total":   total,
			"page":    page,
		})
	})

	mux.HandleFunc("/api/review/resolve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if deps.Reviews == nil {
			writeJSONError(w, "review queue not configured", nil, http.StatusServiceUnavailable)
			return
		}
		var body struct {
			ID        string `json:"id"`
			Action    string `json:"action"`
			Moderator string `json:"moderator"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, "invalid JSON", err, http.StatusBadRequest)
			return
		}
		var err error
		switch body.Action {
		case "approve":
			err = deps.Reviews.Approve(r.Context(), body.ID, body.Moderator)
		case "reject":
			err = deps.Reviews.Reject(r.Context(), body.ID, body.Moderator)
		default:
			writeJSONError(w, "action must be approve or reject", nil, http.StatusBadRequest)
			return
		}
		if err != nil {
			writeJSONError(w, "failed to resolve review", err, http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func pagination(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, 20
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := parsePositive(v); err == nil {
			page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := parsePositive(v); err == nil && n <= 100 {
			pageSize = n
		}
	}
	return page, pageSize
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("value must be positive")
	}
	return n, nil
}
