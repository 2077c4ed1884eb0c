package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundoo/notes-api/internal/model"
)

func newLabelRepoWithMock(t *testing.T) (*LabelRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLabelRepo(db), mock
}

func sampleCreate(userID uint64) model.Note {
	return model.Note{Title: "t", Description: "d", Color: "red", UserID: userID}
}

func expectOwnership(mock sqlmock.Sqlmock, userID, noteID, labelID uint64) {
	mock.ExpectQuery(`SELECT id FROM notes WHERE id=\? AND user_id=\?`).
		WithArgs(noteID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(noteID))
	mock.ExpectQuery(`SELECT id FROM labels WHERE id=\? AND user_id=\?`).
		WithArgs(labelID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(labelID))
}

func TestAttach(t *testing.T) {
	repo, mock := newLabelRepoWithMock(t)

	mock.ExpectBegin()
	expectOwnership(mock, 7, 3, 1)
	mock.ExpectExec(`INSERT INTO note_labels`).
		WithArgs(uint64(3), uint64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Attach(context.Background(), 7, 3, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachDuplicateEdgeIsConflict(t *testing.T) {
	repo, mock := newLabelRepoWithMock(t)

	mock.ExpectBegin()
	expectOwnership(mock, 7, 3, 1)
	mock.ExpectExec(`INSERT INTO note_labels`).
		WithArgs(uint64(3), uint64(1)).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))
	mock.ExpectRollback()

	err := repo.Attach(context.Background(), 7, 3, 1)
	assert.ErrorIs(t, err, ErrAlreadyAttached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachForeignNoteBehavesAsMissing(t *testing.T) {
	repo, mock := newLabelRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM notes WHERE id=\? AND user_id=\?`).
		WithArgs(uint64(3), uint64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Attach(context.Background(), 7, 3, 1)
	assert.ErrorIs(t, err, ErrNoteNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetachAbsentEdgeIsError(t *testing.T) {
	repo, mock := newLabelRepoWithMock(t)

	mock.ExpectBegin()
	expectOwnership(mock, 7, 3, 1)
	mock.ExpectExec(`DELETE FROM note_labels WHERE note_id=\? AND label_id=\?`).
		WithArgs(uint64(3), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Detach(context.Background(), 7, 3, 1)
	assert.ErrorIs(t, err, ErrNotAttached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelDeleteNotFound(t *testing.T) {
	repo, mock := newLabelRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM labels WHERE id=\? AND user_id=\?`).
		WithArgs(uint64(1), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrLabelNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
