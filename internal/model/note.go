package model

import "time"

// Note mirrors a row of the `notes` table. Archive and trash are
// independent flags: a note may be archived and trashed at the same time.
// A note is "active" when both flags are false.
type Note struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Color       string     `json:"color"`
	Reminder    *time.Time `json:"reminder,omitempty"`
	IsArchive   bool       `json:"is_archive"`
	IsTrash     bool       `json:"is_trash"`
	UserID      uint64     `json:"user_id"`
	Labels      []Label    `json:"labels,omitempty"`
}

// Active reports whether the note is neither archived nor trashed.
func (n Note) Active() bool { return !n.IsArchive && !n.IsTrash }

// Label mirrors a row of the `labels` table. Labels are owned per user
// and annotate notes through the note_labels join table.
type Label struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	UserID uint64 `json:"user_id"`
}
