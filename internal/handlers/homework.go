package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyspot-backend/internal/datasource"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
)

type HomeworkHandler struct {
	resolver *datasource.Resolver
}

func NewHomeworkHandler(resolver *datasource.Resolver) *HomeworkHandler {
	return &HomeworkHandler{resolver: resolver}
}

func (h *HomeworkHandler) source(w http.ResponseWriter, r *http.Request) (datasource.HomeworkSource, datasource.Mode) {
	src, mode := h.resolver.Homework(r.Context(), middleware.GetSession(r.Context()))
	setSource(w, mode)
	return src, mode
}

func (h *HomeworkHandler) List(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	items, err := src.List(r.Context())
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HomeworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	item, err := src.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Homework not found", r))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HomeworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHomeworkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	src, mode := h.source(w, r)
	item, err := src.Create(r.Context(), req)
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *HomeworkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateHomeworkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	src, mode := h.source(w, r)
	item, err := src.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Homework not found", r))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HomeworkHandler) Complete(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	res, err := src.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Homework not found", r))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HomeworkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	src, mode := h.source(w, r)
	ok, err := src.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSourceError(w, r, mode, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Homework not found", r))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
