package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fundoo/notes-api/internal/cache"
	"github.com/fundoo/notes-api/internal/middleware"
	"github.com/fundoo/notes-api/internal/model"
	"github.com/fundoo/notes-api/internal/repository"
)

// NoteHandler bundles the note store and the per-user cache mirror.
// Writes go to the store first and then refresh the cache before the
// response is sent; the list read consults the cache first and falls
// through to the store on a miss without warming the cache. Only writes
// populate the mirror.
type NoteHandler struct {
	Notes    *repository.NoteRepo
	Cache    *cache.NoteCache
	Validate *validator.Validate
}

func NewNoteHandler(notes *repository.NoteRepo, nc *cache.NoteCache, v *validator.Validate) *NoteHandler {
	return &NoteHandler{Notes: notes, Cache: nc, Validate: v}
}

type noteReq struct {
	Title       string     `json:"title" validate:"required,max=50"`
	Description string     `json:"description" validate:"max=500"`
	Color       string     `json:"color" validate:"max=20"`
	Reminder    *time.Time `json:"reminder"`
	IsArchive   bool       `json:"is_archive"`
	IsTrash     bool       `json:"is_trash"`
}

type noteUpdateReq struct {
	Title       string `json:"title" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
}

func notePathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// Create inserts a note for the requester and mirrors it into the cache.
func (h *NoteHandler) Create(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	var req noteReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	note := model.Note{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Reminder:    req.Reminder,
		IsArchive:   req.IsArchive,
		IsTrash:     req.IsTrash,
		UserID:      uid,
	}
	if err := h.Notes.Create(ctx, &note); err != nil {
		return fail(c, http.StatusInternalServerError, "create note failed")
	}
	if err := h.Cache.Save(ctx, note); err != nil {
		// Validation errors only; ids are set above.
		c.Logger().Warnf("cache save after create: %v", err)
	}
	middleware.TrackNoteOperation("create")
	return respond(c, http.StatusCreated, "Note Created Successfully", note)
}

// List returns the requester's notes. The cache mapping, when present,
// is returned as-is without consulting the store — staleness relative to
// writes from other service instances is accepted until the next write
// through this instance refreshes the mirror. On a miss the store is
// queried for active notes joined with labels; the result is not written
// back to the cache.
func (h *NoteHandler) List(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if cached, ok := h.Cache.RetrieveAll(ctx, uid); ok {
		middleware.TrackCacheLookup(true)
		notes := make([]model.Note, 0, len(cached))
		for _, n := range cached {
			notes = append(notes, n)
		}
		sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })
		return respond(c, http.StatusOK, "Notes Retrieved Successfully", notes)
	}
	middleware.TrackCacheLookup(false)

	notes, err := h.Notes.ListActive(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "list notes failed")
	}
	if len(notes) == 0 {
		return fail(c, http.StatusNotFound, "no notes found")
	}
	return respond(c, http.StatusOK, "Notes Retrieved Successfully", notes)
}

// Update replaces title and description, then refreshes the cache entry.
func (h *NoteHandler) Update(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	noteID, err := notePathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid note id")
	}
	var req noteUpdateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	note, err := h.Notes.Update(ctx, uid, noteID, req.Title, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return fail(c, http.StatusNotFound, "note not found")
		}
		return fail(c, http.StatusInternalServerError, "update note failed")
	}
	if err := h.Cache.Save(ctx, note); err != nil {
		c.Logger().Warnf("cache save after update: %v", err)
	}
	middleware.TrackNoteOperation("update")
	return respond(c, http.StatusOK, "Note Updated Successfully", note)
}

// Delete removes a note and evicts its cache entry.
func (h *NoteHandler) Delete(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	noteID, err := notePathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid note id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Notes.Delete(ctx, uid, noteID); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return fail(c, http.StatusNotFound, "note not found")
		}
		return fail(c, http.StatusInternalServerError, "delete note failed")
	}
	h.Cache.Delete(ctx, uid, noteID)
	middleware.TrackNoteOperation("delete")
	return respond(c, http.StatusOK, "Note Deleted Successfully", nil)
}

// Archive toggles the archive flag from the `archive` query parameter
// and refreshes the cache entry.
func (h *NoteHandler) Archive(c echo.Context) error {
	return h.setFlag(c, "archive")
}

// Trash toggles the trash flag from the `trash` query parameter and
// refreshes the cache entry.
func (h *NoteHandler) Trash(c echo.Context) error {
	return h.setFlag(c, "trash")
}

func (h *NoteHandler) setFlag(c echo.Context, flag string) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}
	noteID, err := notePathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid note id")
	}
	value, err := strconv.ParseBool(c.QueryParam(flag))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid "+flag+" value")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var note model.Note
	var message string
	switch flag {
	case "archive":
		note, err = h.Notes.SetArchive(ctx, uid, noteID, value)
		message = "Note Unarchived Successfully"
		if value {
			message = "Note Archived Successfully"
		}
	default:
		note, err = h.Notes.SetTrash(ctx, uid, noteID, value)
		message = "Note Restored Successfully"
		if value {
			message = "Note Trashed Successfully"
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return fail(c, http.StatusNotFound, "note not found")
		}
		return fail(c, http.StatusInternalServerError, "update note failed")
	}
	if err := h.Cache.Save(ctx, note); err != nil {
		c.Logger().Warnf("cache save after %s: %v", flag, err)
	}
	middleware.TrackNoteOperation(flag)
	return respond(c, http.StatusOK, message, note)
}

// ListArchived returns archived, non-trashed notes straight from the
// store. Trash wins over archive: a note with both flags set appears
// only in the trash listing.
func (h *NoteHandler) ListArchived(c echo.Context) error {
	return h.listFiltered(c, h.Notes.ListArchived, "Archived Notes Retrieved Successfully")
}

// ListTrashed returns trashed notes regardless of the archive flag.
func (h *NoteHandler) ListTrashed(c echo.Context) error {
	return h.listFiltered(c, h.Notes.ListTrashed, "Trashed Notes Retrieved Successfully")
}

func (h *NoteHandler) listFiltered(c echo.Context, list func(context.Context, uint64) ([]model.Note, error), message string) error {
	uid, err := requesterID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	notes, err := list(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "list notes failed")
	}
	if len(notes) == 0 {
		return fail(c, http.StatusNotFound, "no notes found")
	}
	return respond(c, http.StatusOK, message, notes)
}
