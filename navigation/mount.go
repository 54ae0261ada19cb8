package navigation

import (
	"net/http"
	"net/url"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/upb/car-park/views"
	"go.uber.org/zap"
)

// Mount registers every page of the table on r under basePath. Each request
// is one navigation: it is guarded, then rendered or redirected.
func Mount(r chi.Router, basePath string, table *Table, guard *Guard, logger *zap.Logger) {
	if basePath == "" {
		basePath = "/"
	}

	for _, rec := range table.Routes() {
		if rec.View == nil {
			continue
		}

		h := &pageHandler{
			basePath: basePath,
			table:    table,
			guard:    guard,
			record:   rec,
			logger:   logger,
		}

		p := path.Join(basePath, rec.Path)
		r.Get(p, h.serve(rec.View.Render))
		if s, ok := rec.View.(views.Submitter); ok {
			r.Post(p, h.serve(s.Submit))
		}
	}
}

type pageHandler struct {
	basePath string
	table    *Table
	guard    *Guard
	record   *Record
	logger   *zap.Logger
}

func (h *pageHandler) serve(next func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match, _ := h.table.Match(h.record.Path)
		intent := Intent{To: match, From: h.origin(r)}

		decision := h.guard.Resolve(r.Context(), intent)
		if decision.Outcome == Redirected {
			http.Redirect(w, r, path.Join(h.basePath, decision.Target), http.StatusFound)
			return
		}

		if err := next(w, r); err != nil {
			h.logger.Error("failed to render page",
				zap.String("route", h.record.Name),
				zap.String("method", r.Method),
				zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// origin is the path the user navigated from, taken from the Referer
func (h *pageHandler) origin(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Path
}
