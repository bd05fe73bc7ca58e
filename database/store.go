package database

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
	"github.com/chxlky/homework-board-sync/internal/reconcile"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("assignment not found")

// Store persists one board's collection under a single storage key.
type Store struct {
	db  *gorm.DB
	key string
	now func() time.Time
}

func NewStore(db *gorm.DB, key string) *Store {
	return &Store{db: db, key: key, now: time.Now}
}

// Load returns every item on the board in creation order.
func (s *Store) Load() ([]models.LocalAssignment, error) {
	items := []models.LocalAssignment{}
	if err := s.db.Where("board_key = ?", s.key).Order("created_at, id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	return items, nil
}

// Save replaces the whole collection in one transaction.
func (s *Store) Save(items []models.LocalAssignment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("board_key = ?", s.key).Delete(&models.LocalAssignment{}).Error; err != nil {
			return fmt.Errorf("failed to clear assignments: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.LocalAssignment, len(items))
		for i, a := range items {
			a.BoardKey = s.key
			rows[i] = a
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save assignments: %w", err)
		}
		return nil
	})
}

// Add stores a new item, assigning its id and creation time.
func (s *Store) Add(a models.LocalAssignment) (models.LocalAssignment, error) {
	a.ID = uuid.NewString()
	a.BoardKey = s.key
	a.CreatedAt = s.now()
	if !a.ColumnID.Valid() {
		a.ColumnID = models.StatusTodo
	}
	if a.Emoji == "" {
		a.Emoji = reconcile.SubjectEmoji(a.Subject)
	}
	if err := s.db.Create(&a).Error; err != nil {
		return models.LocalAssignment{}, fmt.Errorf("failed to add assignment: %w", err)
	}
	return a, nil
}

// Move places the item in column. The remote status is left alone so the
// next sync can tell the move was made by hand.
func (s *Store) Move(id string, column models.WorkflowStatus) (models.LocalAssignment, error) {
	if !column.Valid() {
		return models.LocalAssignment{}, fmt.Errorf("unknown column %q", column)
	}
	var a models.LocalAssignment
	err := s.db.Where("board_key = ? AND id = ?", s.key, id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LocalAssignment{}, ErrNotFound
	}
	if err != nil {
		return models.LocalAssignment{}, fmt.Errorf("failed to load assignment %s: %w", id, err)
	}
	if err := s.db.Model(&a).Update("column_id", column).Error; err != nil {
		return models.LocalAssignment{}, fmt.Errorf("failed to move assignment %s: %w", id, err)
	}
	a.ColumnID = column
	return a, nil
}

func (s *Store) Delete(id string) error {
	res := s.db.Where("board_key = ? AND id = ?", s.key, id).Delete(&models.LocalAssignment{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete assignment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Column lists the items in column, dated items first by due date, then by
// creation time.
func (s *Store) Column(column models.WorkflowStatus) ([]models.LocalAssignment, error) {
	items, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := []models.LocalAssignment{}
	for _, a := range items {
		if a.ColumnID == column {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, compareDue)
	return out, nil
}

func compareDue(a, b models.LocalAssignment) int {
	switch {
	case a.DueDate == "" && b.DueDate != "":
		return 1
	case a.DueDate != "" && b.DueDate == "":
		return -1
	case a.DueDate != b.DueDate:
		if a.DueDate < b.DueDate {
			return -1
		}
		return 1
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}
