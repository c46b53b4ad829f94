// internal/api/http/assets.go
package http

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/itembased/examdesk/internal/storage"
)

// MountAssets serves stored blobs. Only the fs driver points image URLs here;
// S3 URLs go straight to the bucket.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	// GET /assets/*   -> returns the blob at whatever follows /assets/
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("asset read failed", "key", key, "error", err)
			http.Error(w, "asset unavailable", http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		br := bufio.NewReaderSize(rc, 3072)
		head, _ := br.Peek(3072)
		w.Header().Set("Content-Type", mimetype.Detect(head).String())
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		_, _ = io.Copy(w, br)
	})
}
