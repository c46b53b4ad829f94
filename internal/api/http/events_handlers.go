// internal/api/http/events_handlers.go
package http

import (
	"log/slog"
	"net/http"
	"strconv"

	syncx "github.com/itembased/examdesk/internal/sync"
)

const maxEventPage = 500

// GET /events?after=<seq>&limit=
// Feed of the event log for replication and audit, oldest first.
func ListEventsHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var after int64
		if s := q.Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				writeError(w, http.StatusBadRequest, "after must be a sequence number")
				return
			}
			after = v
		}
		limit := min(parseIntDefault(q.Get("limit"), 100), maxEventPage)

		evs, err := events.Since(r.Context(), after, limit)
		if err != nil {
			slog.Error("read event log failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not read events")
			return
		}
		if evs == nil {
			evs = []syncx.Event{}
		}
		next := after
		if len(evs) > 0 {
			next = evs[len(evs)-1].Seq
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": evs, "next": next})
	}
}
