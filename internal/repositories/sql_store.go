package repository

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "notegrid.app/notegrid/pkg/models"
)

type UserRow struct {
	UUID      string `gorm:"primaryKey;size:36"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt int64  `gorm:"not null;autoUpdateTime:false"`
}

func (UserRow) TableName() string { return "users" }

type TaskRow struct {
	UserUUID  string   `gorm:"primaryKey;size:36;index:idx_tasks_user_order,priority:1"`
	ID        string   `gorm:"primaryKey"`
	Title     string   `gorm:"not null;default:''"`
	Note      string   `gorm:"not null;default:''"`
	Tags      []string `gorm:"serializer:json"`
	Color     string   `gorm:"not null"`
	Quadrant  string   `gorm:"column:quadrant"`
	Kanban    string   `gorm:"column:kanban_status"`
	Completed bool     `gorm:"not null;default:false"`
	SortOrder int      `gorm:"not null;default:0;index:idx_tasks_user_order,priority:2"`
	CreatedAt int64    `gorm:"not null;autoCreateTime:false"`
	UpdatedAt int64    `gorm:"not null;autoUpdateTime:false"`
}

func (TaskRow) TableName() string { return "tasks" }

type LinkRow struct {
	UserUUID  string `gorm:"primaryKey;size:36"`
	ID        string `gorm:"primaryKey"`
	URL       string `gorm:"not null"`
	Title     string `gorm:"not null;default:''"`
	Favicon   string `gorm:"not null;default:''"`
	SortOrder int    `gorm:"not null;default:0"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false"`
}

func (LinkRow) TableName() string { return "links" }

// Models lists the row types SQLStore needs migrated.
func Models() []any {
	return []any{&UserRow{}, &TaskRow{}, &LinkRow{}}
}

// SQLStore is the relational variant: one row per user, task and link, with
// an explicit per-user sort order.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) UserExists(ctx context.Context, identity string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&UserRow{}).Where("uuid = ?", identity).Count(&n).Error
	return n > 0, err
}

func (s *SQLStore) CreateUser(ctx context.Context, identity string, now int64) (model.UserData, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRow{UUID: identity, CreatedAt: now, UpdatedAt: now})
	if res.Error != nil {
		return model.UserData{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.UserData{}, ErrUserExists
	}
	return model.NewUserData(now), nil
}

func (s *SQLStore) LoadUserData(ctx context.Context, identity string) (model.UserData, error) {
	var data model.UserData
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user UserRow
		if err := tx.First(&user, "uuid = ?", identity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		tasks, err := listTasks(tx, identity)
		if err != nil {
			return err
		}
		links, err := listLinks(tx, identity)
		if err != nil {
			return err
		}

		data = model.UserData{
			Tasks:     tasks,
			Links:     links,
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.UpdatedAt,
		}
		return nil
	})
	return data, err
}

func (s *SQLStore) ReplaceUserData(ctx context.Context, identity string, data model.UserData) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := UserRow{UUID: identity, CreatedAt: data.CreatedAt, UpdatedAt: data.UpdatedAt}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uuid"}},
			DoUpdates: clause.AssignmentColumns([]string{"created_at", "updated_at"}),
		}).Create(&user).Error
		if err != nil {
			return err
		}

		if err := tx.Where("user_uuid = ?", identity).Delete(&TaskRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_uuid = ?", identity).Delete(&LinkRow{}).Error; err != nil {
			return err
		}

		if tasks := dedupe(data.Tasks, model.TaskID); len(tasks) > 0 {
			rows := make([]TaskRow, len(tasks))
			for i, t := range tasks {
				rows[i] = taskRow(identity, t, i)
			}
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return err
			}
		}
		if links := dedupe(data.Links, model.LinkID); len(links) > 0 {
			rows := make([]LinkRow, len(links))
			for i, l := range links {
				rows[i] = linkRow(identity, l, i)
			}
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) DeleteUser(ctx context.Context, identity string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_uuid = ?", identity).Delete(&TaskRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_uuid = ?", identity).Delete(&LinkRow{}).Error; err != nil {
			return err
		}
		return tx.Where("uuid = ?", identity).Delete(&UserRow{}).Error
	})
}

func (s *SQLStore) ListTasks(ctx context.Context, identity string) ([]model.Task, error) {
	return listTasks(s.db.WithContext(ctx), identity)
}

func (s *SQLStore) CreateTask(ctx context.Context, identity string, task model.Task, now int64) (model.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, identity, now); err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&TaskRow{}).Where("user_uuid = ? AND id = ?", identity, task.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}

		next, err := nextSortOrder(tx, &TaskRow{}, identity)
		if err != nil {
			return err
		}
		row := taskRow(identity, task, next)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return touchUser(tx, identity, now)
	})
	if err != nil {
		return model.Task{}, err
	}
	return task.Clone(), nil
}

func (s *SQLStore) UpdateTask(ctx context.Context, identity, id string, upd model.TaskUpdate, now int64) (model.Task, error) {
	var updated model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row TaskRow
		if err := tx.First(&row, "user_uuid = ? AND id = ?", identity, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updated = upd.Apply(row.toModel())
		updated.UpdatedAt = now

		next := taskRow(identity, updated, row.SortOrder)
		err := tx.Model(&next).
			Select("title", "note", "tags", "color", "quadrant", "kanban_status", "completed", "updated_at").
			Updates(&next).Error
		if err != nil {
			return err
		}
		return touchUser(tx, identity, now)
	})
	return updated, err
}

func (s *SQLStore) DeleteTask(ctx context.Context, identity, id string, now int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_uuid = ? AND id = ?", identity, id).Delete(&TaskRow{}).Error; err != nil {
			return err
		}
		return touchUser(tx, identity, now)
	})
}

func (s *SQLStore) ReorderTasks(ctx context.Context, identity string, ids []string, now int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks, err := listTasks(tx, identity)
		if err != nil {
			return err
		}

		for i, t := range model.Reorder(tasks, ids, model.TaskID) {
			updates := map[string]interface{}{"sort_order": i}
			if slices.Contains(ids, t.ID) {
				updates["updated_at"] = now
			}
			err := tx.Model(&TaskRow{}).
				Where("user_uuid = ? AND id = ?", identity, t.ID).
				Updates(updates).Error
			if err != nil {
				return err
			}
		}
		return touchUser(tx, identity, now)
	})
}

func (s *SQLStore) ListLinks(ctx context.Context, identity string) ([]model.Link, error) {
	return listLinks(s.db.WithContext(ctx), identity)
}

func (s *SQLStore) CreateLink(ctx context.Context, identity string, link model.Link, now int64) (model.Link, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, identity, now); err != nil {
			return err
		}

		var n int64
		if err := tx.Model(&LinkRow{}).Where("user_uuid = ? AND id = ?", identity, link.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}

		next, err := nextSortOrder(tx, &LinkRow{}, identity)
		if err != nil {
			return err
		}
		row := linkRow(identity, link, next)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return touchUser(tx, identity, now)
	})
	if err != nil {
		return model.Link{}, err
	}
	return link, nil
}

func (s *SQLStore) DeleteLink(ctx context.Context, identity, id string, now int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_uuid = ? AND id = ?", identity, id).Delete(&LinkRow{}).Error; err != nil {
			return err
		}
		return touchUser(tx, identity, now)
	})
}

func (s *SQLStore) ReorderLinks(ctx context.Context, identity string, ids []string, now int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links, err := listLinks(tx, identity)
		if err != nil {
			return err
		}

		for i, l := range model.Reorder(links, ids, model.LinkID) {
			err := tx.Model(&LinkRow{}).
				Where("user_uuid = ? AND id = ?", identity, l.ID).
				Update("sort_order", i).Error
			if err != nil {
				return err
			}
		}
		return touchUser(tx, identity, now)
	})
}

func listTasks(db *gorm.DB, identity string) ([]model.Task, error) {
	var rows []TaskRow
	err := db.Where("user_uuid = ?", identity).
		Order("sort_order asc, created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tasks := make([]model.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.toModel()
	}
	return tasks, nil
}

func listLinks(db *gorm.DB, identity string) ([]model.Link, error) {
	var rows []LinkRow
	err := db.Where("user_uuid = ?", identity).
		Order("sort_order asc, created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	links := make([]model.Link, len(rows))
	for i, r := range rows {
		links[i] = r.toModel()
	}
	return links, nil
}

func ensureUser(tx *gorm.DB, identity string, now int64) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRow{UUID: identity, CreatedAt: now, UpdatedAt: now}).Error
}

func touchUser(tx *gorm.DB, identity string, now int64) error {
	return tx.Model(&UserRow{}).Where("uuid = ?", identity).Update("updated_at", now).Error
}

func nextSortOrder(tx *gorm.DB, table any, identity string) (int, error) {
	var maxOrder int
	err := tx.Model(table).
		Where("user_uuid = ?", identity).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&maxOrder).Error
	return maxOrder + 1, err
}

func taskRow(identity string, t model.Task, order int) TaskRow {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskRow{
		UserUUID:  identity,
		ID:        t.ID,
		Title:     t.Title,
		Note:      t.Note,
		Tags:      tags,
		Color:     t.Color,
		Quadrant:  string(t.Quadrant),
		Kanban:    string(t.Kanban),
		Completed: t.Completed,
		SortOrder: order,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (r TaskRow) toModel() model.Task {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Task{
		ID:        r.ID,
		Title:     r.Title,
		Note:      r.Note,
		Tags:      tags,
		Color:     r.Color,
		Quadrant:  model.Quadrant(r.Quadrant),
		Kanban:    model.KanbanStatus(r.Kanban),
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func linkRow(identity string, l model.Link, order int) LinkRow {
	return LinkRow{
		UserUUID:  identity,
		ID:        l.ID,
		URL:       l.URL,
		Title:     l.Title,
		Favicon:   l.Favicon,
		SortOrder: order,
		CreatedAt: l.CreatedAt,
	}
}

func (r LinkRow) toModel() model.Link {
	return model.Link{
		ID:        r.ID,
		URL:       r.URL,
		Title:     r.Title,
		Favicon:   r.Favicon,
		CreatedAt: r.CreatedAt,
	}
}

// dedupe keeps the first entity for every id.
func dedupe[T any](items []T, idOf func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		id := idOf(it)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, it)
	}
	return out
}
