package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// namedResource is the storage surface shared by accounts and categories.
type namedResource[T any] struct {
	list       func(ctx context.Context, userID string) ([]T, error)
	get        func(ctx context.Context, userID, id string) (T, error)
	create     func(ctx context.Context, userID, name string) (T, error)
	update     func(ctx context.Context, userID, id, name string) (T, error)
	delete     func(ctx context.Context, userID, id string) error
	bulkDelete func(ctx context.Context, userID string, ids []string) ([]string, error)
}

// namedRoutes mounts list, create, get, update, delete and bulk-delete for
// a resource that only carries a name.
func namedRoutes[T any](res namedResource[T]) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			items, err := res.list(r.Context(), userID(r))
			if err != nil {
				respondError(w, r, err)
				return
			}
			if items == nil {
				items = []T{}
			}
			respond(w, r, http.StatusOK, items)
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req nameRequest
			if err := decodeJSON(r, &req); err != nil {
				respondError(w, r, err)
				return
			}
			item, err := res.create(r.Context(), userID(r), req.Name)
			if err != nil {
				respondError(w, r, err)
				return
			}
			respond(w, r, http.StatusOK, item)
		})

		r.Post("/bulk-delete", func(w http.ResponseWriter, r *http.Request) {
			var req idsRequest
			if err := decodeJSON(r, &req); err != nil {
				respondError(w, r, err)
				return
			}
			deleted, err := res.bulkDelete(r.Context(), userID(r), req.IDs)
			if err != nil {
				respondError(w, r, err)
				return
			}
			respond(w, r, http.StatusOK, idList(deleted))
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				respondError(w, r, err)
				return
			}
			item, err := res.get(r.Context(), userID(r), id)
			if err != nil {
				respondError(w, r, err)
				return
			}
			respond(w, r, http.StatusOK, item)
		})

		r.Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				respondError(w, r, err)
				return
			}
			var req nameRequest
			if err := decodeJSON(r, &req); err != nil {
				respondError(w, r, err)
				return
			}
			item, err := res.update(r.Context(), userID(r), id, req.Name)
			if err != nil {
				respondError(w, r, err)
				return
			}
			respond(w, r, http.StatusOK, item)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				respondError(w, r, err)
				return
			}
			if err := res.delete(r.Context(), userID(r), id); err != nil {
				respondError(w, r, err)
				return
			}
			respond(w, r, http.StatusOK, idResponse{ID: id})
		})
	}
}
