package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fundoo/notes-api/internal/model"
)

// NoteRepo provides CRUD and lifecycle operations for notes. Every query
// filters by user_id so notes of other users behave as nonexistent.
type NoteRepo struct{ DB *sql.DB }

func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{DB: db} }

const noteColumns = "id,title,description,color,reminder,is_archive,is_trash,user_id"

// Create inserts a note and populates the generated ID on n.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notes (title, description, color, reminder, is_archive, is_trash, user_id) VALUES (?,?,?,?,?,?,?)",
		n.Title, n.Description, n.Color, n.Reminder, n.IsArchive, n.IsTrash, n.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// GetByID fetches a single owner-scoped note.
func (r *NoteRepo) GetByID(ctx context.Context, userID, noteID uint64) (model.Note, error) {
	var n model.Note
	var reminder sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id=? AND user_id=? LIMIT 1",
		noteID, userID).
		Scan(&n.ID, &n.Title, &n.Description, &n.Color, &reminder, &n.IsArchive, &n.IsTrash, &n.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Note{}, ErrNoteNotFound
		}
		return model.Note{}, err
	}
	if reminder.Valid {
		t := reminder.Time
		n.Reminder = &t
	}
	return n, nil
}

// Update replaces title and description of an owned note and returns the
// refreshed row.
func (r *NoteRepo) Update(ctx context.Context, userID, noteID uint64, title, description string) (model.Note, error) {
	// RowsAffected is 0 both for a missing row and for a no-op write, so
	// existence is resolved by the follow-up read.
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE notes SET title=?, description=? WHERE id=? AND user_id=?",
		title, description, noteID, userID); err != nil {
		return model.Note{}, err
	}
	return r.GetByID(ctx, userID, noteID)
}

// Delete removes an owned note and its label edges.
func (r *NoteRepo) Delete(ctx context.Context, userID, noteID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id=? AND user_id=?", noteID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM note_labels WHERE note_id=?", noteID); err != nil {
		return err
	}
	return tx.Commit()
}

// SetArchive sets the archive flag and returns the refreshed note.
func (r *NoteRepo) SetArchive(ctx context.Context, userID, noteID uint64, archive bool) (model.Note, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE notes SET is_archive=? WHERE id=? AND user_id=?",
		archive, noteID, userID); err != nil {
		return model.Note{}, err
	}
	return r.GetByID(ctx, userID, noteID)
}

// SetTrash sets the trash flag and returns the refreshed note.
func (r *NoteRepo) SetTrash(ctx context.Context, userID, noteID uint64, trash bool) (model.Note, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE notes SET is_trash=? WHERE id=? AND user_id=?",
		trash, noteID, userID); err != nil {
		return model.Note{}, err
	}
	return r.GetByID(ctx, userID, noteID)
}

// ListActive returns the user's notes that are neither archived nor
// trashed, each joined with its labels.
func (r *NoteRepo) ListActive(ctx context.Context, userID uint64) ([]model.Note, error) {
	notes, err := r.list(ctx, userID, "is_archive=false AND is_trash=false")
	if err != nil {
		return nil, err
	}
	if err := r.attachLabels(ctx, userID, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// ListArchived returns archived notes that are not trashed. A trashed
// note never appears here even while its archive flag is set.
func (r *NoteRepo) ListArchived(ctx context.Context, userID uint64) ([]model.Note, error) {
	return r.list(ctx, userID, "is_archive=true AND is_trash=false")
}

// ListTrashed returns trashed notes regardless of the archive flag.
func (r *NoteRepo) ListTrashed(ctx context.Context, userID uint64) ([]model.Note, error) {
	return r.list(ctx, userID, "is_trash=true")
}

func (r *NoteRepo) list(ctx context.Context, userID uint64, filter string) ([]model.Note, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE user_id=? AND "+filter+" ORDER BY id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		var reminder sql.NullTime
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.Color, &reminder, &n.IsArchive, &n.IsTrash, &n.UserID); err != nil {
			return nil, err
		}
		if reminder.Valid {
			t := reminder.Time
			n.Reminder = &t
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// attachLabels fills the Labels slice of each note in place.
func (r *NoteRepo) attachLabels(ctx context.Context, userID uint64, notes []model.Note) error {
	if len(notes) == 0 {
		return nil
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT nl.note_id, l.id, l.label_name, l.user_id
		   FROM note_labels nl
		   JOIN labels l ON l.id = nl.label_id
		  WHERE l.user_id=?`,
		userID)
	if err != nil {
		return err
	}
	defer rows.Close()

	byNote := make(map[uint64][]model.Label)
	for rows.Next() {
		var noteID uint64
		var l model.Label
		if err := rows.Scan(&noteID, &l.ID, &l.Name, &l.UserID); err != nil {
			return err
		}
		byNote[noteID] = append(byNote[noteID], l)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range notes {
		notes[i].Labels = byNote[notes[i].ID]
	}
	return nil
}
