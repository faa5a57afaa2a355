package http

import (
	"net/http"
	"strconv"

	"financeflow/internal/core"
	applog "financeflow/internal/log"
	"financeflow/internal/services"

	"github.com/gorilla/mux"
)

// collection serves the CRUD routes of one record kind.
type collection[T core.Entity[T]] struct {
	records *services.Records[T]
	// list replaces the plain listing, e.g. with filtering or status views.
	list func(r *http.Request) (any, error)
	// view decorates a single record on its way out.
	view func(T) any
}

func (c *collection[T]) mount(r *mux.Router) {
	base := "/api/" + string(c.records.Kind())
	item := base + "/{id:[0-9]+}"

	r.HandleFunc(base, c.handleList).Methods(http.MethodGet)
	r.HandleFunc(base, c.handleCreate).Methods(http.MethodPost)
	r.HandleFunc(item, c.handleGet).Methods(http.MethodGet)
	r.HandleFunc(item, c.handleReplace).Methods(http.MethodPut)
	r.HandleFunc(item, c.handlePatch).Methods(http.MethodPatch)
	r.HandleFunc(item, c.handleDelete).Methods(http.MethodDelete)
}

func (c *collection[T]) render(rec T) any {
	if c.view != nil {
		return c.view(rec)
	}
	return rec
}

func (c *collection[T]) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		out any
		err error
	)
	if c.list != nil {
		out, err = c.list(r)
	} else {
		out, err = c.records.List(r.Context())
	}
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (c *collection[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec T
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	created, err := c.records.Create(r.Context(), rec.WithRecordID(0))
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/"+string(c.records.Kind())+"/"+strconv.FormatInt(created.RecordID(), 10))
	writeJSON(w, http.StatusCreated, c.render(created))
}

func (c *collection[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	rec, err := c.records.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, c.render(rec))
}

// handleReplace stores the body as the whole new record.
func (c *collection[T]) handleReplace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var rec T
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	c.update(w, r, id, rec)
}

// handlePatch decodes the body over the stored record, so omitted fields
// keep their current values.
func (c *collection[T]) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	rec, err := c.records.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	c.update(w, r, id, rec)
}

func (c *collection[T]) update(w http.ResponseWriter, r *http.Request, id int64, rec T) {
	updated, err := c.records.Update(r.Context(), id, rec)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, c.render(updated))
}

func (c *collection[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := c.records.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
