package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fundoo/notes-api/internal/model"
	"github.com/fundoo/notes-api/internal/repository"
)

// LabelHandler serves label CRUD and the note-label association. Label
// writes do not touch the note cache: cached note snapshots pick up
// label changes on the next note write, which is the accepted staleness
// window of the mirror.
type LabelHandler struct {
	Labels   *repository.LabelRepo
	Validate *validator.Validate
}

func NewLabelHandler(labels *repository.LabelRepo, v *validator.Validate) *LabelHandler {
	return &LabelHandler{Labels: labels, Validate: v}
}

type labelReq struct {
	Name string `json:"label_name" validate:"required,min=1,max=50"`
}

// Create inserts a label for the requester.
func (h *LabelHandler) Create(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	var req labelReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	label := model.Label{Name: req.Name, UserID: uid}
	if err := h.Labels.Create(ctx, &label); err != nil {
		return fail(c, http.StatusInternalServerError, "create label failed")
	}
	return respond(c, http.StatusCreated, "Label Created Successfully", label)
}

// List returns the requester's labels.
func (h *LabelHandler) List(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	labels, err := h.Labels.List(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "list labels failed")
	}
	if len(labels) == 0 {
		return fail(c, http.StatusNotFound, "no labels found")
	}
	return respond(c, http.StatusOK, "Labels Retrieved Successfully", labels)
}

// Update renames an owned label.
func (h *LabelHandler) Update(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	labelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid label id")
	}
	var req labelReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	label, err := h.Labels.Update(ctx, uid, labelID, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrLabelNotFound) {
			return fail(c, http.StatusNotFound, "label not found")
		}
		return fail(c, http.StatusInternalServerError, "update label failed")
	}
	return respond(c, http.StatusOK, "Label Updated Successfully", label)
}

// Delete removes an owned label and its note edges.
func (h *LabelHandler) Delete(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	labelID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid label id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Labels.Delete(ctx, uid, labelID); err != nil {
		if errors.Is(err, repository.ErrLabelNotFound) {
			return fail(c, http.StatusNotFound, "label not found")
		}
		return fail(c, http.StatusInternalServerError, "delete label failed")
	}
	return respond(c, http.StatusOK, "Label Deleted Successfully", nil)
}

// Attach adds a label to a note. Both must belong to the requester;
// attaching an already-attached label is a conflict.
func (h *LabelHandler) Attach(c echo.Context) error {
	return h.edge(c, h.Labels.Attach, "Label Attached Successfully")
}

// Detach removes a label from a note. Detaching an absent edge is an
// error, not a no-op.
func (h *LabelHandler) Detach(c echo.Context) error {
	return h.edge(c, h.Labels.Detach, "Label Detached Successfully")
}

func (h *LabelHandler) edge(c echo.Context, op func(context.Context, uint64, uint64, uint64) error, message string) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid note id")
	}
	labelID, err := strconv.ParseUint(c.Param("label_id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid label id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := op(ctx, uid, noteID, labelID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoteNotFound):
			return fail(c, http.StatusNotFound, "note not found")
		case errors.Is(err, repository.ErrLabelNotFound):
			return fail(c, http.StatusNotFound, "label not found")
		case errors.Is(err, repository.ErrAlreadyAttached):
			return fail(c, http.StatusConflict, "label already attached")
		case errors.Is(err, repository.ErrNotAttached):
			return fail(c, http.StatusNotFound, "label not attached")
		}
		return fail(c, http.StatusInternalServerError, "label association failed")
	}
	return respond(c, http.StatusOK, message, nil)
}
