package repository

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	"gorm.io/gorm"

	"taskflow/internal/model"
)

// StatusRef is a status as seen from a log entry. Found is false when the
// row no longer exists at all; Deleted is true for tombstoned rows.
type StatusRef struct {
	ID      *uint
	Name    string
	Found   bool
	Deleted bool
}

// HistoryRow is one ledger entry joined with its statuses and actor.
type HistoryRow struct {
	ID          uint
	Action      model.Action
	Observation string
	ChangedAt   time.Time
	Previous    StatusRef
	New         StatusRef
	ActorID     uint
	ActorName   string
	ActorFound  bool
}

// ActivityRepository appends to and reads the activity ledger. It has no
// update or delete methods.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: tx}
}

func (r *ActivityRepository) Append(ctx context.Context, entry *model.ActivityLog) error {
	if err := r.db.WithContext(ctx).Omit("Task", "Subtask").Create(entry).Error; err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return nil
}

const historySelect = `al.id, al.action, al.observation, al.changed_at, al.user_id,
	al.status_previous_id, sp.name,
	CASE WHEN sp.id IS NULL THEN 0 ELSE 1 END,
	CASE WHEN sp.deleted_at IS NULL THEN 0 ELSE 1 END,
	al.status_new_id, sn.name,
	CASE WHEN sn.id IS NULL THEN 0 ELSE 1 END,
	CASE WHEN sn.deleted_at IS NULL THEN 0 ELSE 1 END,
	u.name`

// History streams the entries of one task or subtask ordered by
// (changed_at, id). Each range over the result runs the query again. Status
// joins include tombstones; the actor join only matches active users.
func (r *ActivityRepository) History(ctx context.Context, kind model.EntityKind, entityID uint) iter.Seq2[HistoryRow, error] {
	return func(yield func(HistoryRow, error) bool) {
		column := "al.task_id"
		if kind == model.EntitySubtask {
			column = "al.subtask_id"
		}

		rows, err := r.db.WithContext(ctx).
			Table("activity_logs AS al").
			Select(historySelect).
			Joins("LEFT JOIN statuses sp ON sp.id = al.status_previous_id").
			Joins("LEFT JOIN statuses sn ON sn.id = al.status_new_id").
			Joins("LEFT JOIN users u ON u.id = al.user_id AND u.deleted_at IS NULL").
			Where(column+" = ?", entityID).
			Order("al.changed_at ASC, al.id ASC").
			Rows()
		if err != nil {
			yield(HistoryRow{}, fmt.Errorf("query history: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			row, err := scanHistoryRow(rows)
			if err != nil {
				yield(HistoryRow{}, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(HistoryRow{}, fmt.Errorf("iterate history: %w", err))
		}
	}
}

func scanHistoryRow(rows *sql.Rows) (HistoryRow, error) {
	var (
		row                      HistoryRow
		action                   string
		prevID                   sql.NullInt64
		prevName, newName, actor sql.NullString
		prevFound, prevDeleted   int
		newID                    int64
		newFound, newDeleted     int
	)
	err := rows.Scan(
		&row.ID, &action, &row.Observation, &row.ChangedAt, &row.ActorID,
		&prevID, &prevName, &prevFound, &prevDeleted,
		&newID, &newName, &newFound, &newDeleted,
		&actor,
	)
	if err != nil {
		return HistoryRow{}, fmt.Errorf("scan history row: %w", err)
	}

	row.Action = model.Action(action)
	if prevID.Valid {
		id := uint(prevID.Int64)
		row.Previous = StatusRef{ID: &id, Name: prevName.String, Found: prevFound == 1, Deleted: prevDeleted == 1}
	}
	nid := uint(newID)
	row.New = StatusRef{ID: &nid, Name: newName.String, Found: newFound == 1, Deleted: newDeleted == 1}
	row.ActorName = actor.String
	row.ActorFound = actor.Valid
	return row, nil
}
