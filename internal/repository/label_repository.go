package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fundoo/notes-api/internal/model"
)

// LabelRepo provides CRUD for labels and the note-label association.
type LabelRepo struct{ DB *sql.DB }

func NewLabelRepo(db *sql.DB) *LabelRepo { return &LabelRepo{DB: db} }

// Create inserts a label and populates the generated ID on l.
func (r *LabelRepo) Create(ctx context.Context, l *model.Label) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO labels (label_name, user_id) VALUES (?,?)",
		l.Name, l.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// List returns all labels of a user ordered by id.
func (r *LabelRepo) List(ctx context.Context, userID uint64) ([]model.Label, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,label_name,user_id FROM labels WHERE user_id=? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []model.Label
	for rows.Next() {
		var l model.Label
		if err := rows.Scan(&l.ID, &l.Name, &l.UserID); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// Update renames an owned label and returns the refreshed row.
func (r *LabelRepo) Update(ctx context.Context, userID, labelID uint64, name string) (model.Label, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE labels SET label_name=? WHERE id=? AND user_id=?",
		name, labelID, userID); err != nil {
		return model.Label{}, err
	}
	return r.getByID(ctx, userID, labelID)
}

// Delete removes an owned label and its note edges.
func (r *LabelRepo) Delete(ctx context.Context, userID, labelID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM labels WHERE id=? AND user_id=?", labelID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLabelNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM note_labels WHERE label_id=?", labelID); err != nil {
		return err
	}
	return tx.Commit()
}

// Attach creates a note-label edge. Both rows must belong to the user.
// Attaching an existing edge is an explicit conflict, not a no-op.
func (r *LabelRepo) Attach(ctx context.Context, userID, noteID, labelID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.checkOwnership(ctx, tx, userID, noteID, labelID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO note_labels (note_id, label_id) VALUES (?,?)",
		noteID, labelID); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrAlreadyAttached
		}
		return err
	}
	return tx.Commit()
}

// Detach removes a note-label edge. Removing an absent edge is an error.
func (r *LabelRepo) Detach(ctx context.Context, userID, noteID, labelID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.checkOwnership(ctx, tx, userID, noteID, labelID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM note_labels WHERE note_id=? AND label_id=?", noteID, labelID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotAttached
	}
	return tx.Commit()
}

// checkOwnership verifies that the note and the label both belong to the
// user. A foreign or missing row reports not-found.
func (r *LabelRepo) checkOwnership(ctx context.Context, tx *sql.Tx, userID, noteID, labelID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM notes WHERE id=? AND user_id=? LIMIT 1", noteID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoteNotFound
	}
	if err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM labels WHERE id=? AND user_id=? LIMIT 1", labelID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLabelNotFound
	}
	return err
}

func (r *LabelRepo) getByID(ctx context.Context, userID, labelID uint64) (model.Label, error) {
	var l model.Label
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,label_name,user_id FROM labels WHERE id=? AND user_id=? LIMIT 1",
		labelID, userID).Scan(&l.ID, &l.Name, &l.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Label{}, ErrLabelNotFound
	}
	return l, err
}
