package validators

import model "notegrid.app/notegrid/pkg/models"

type RegisterRequest struct {
	UUID string `json:"uuid" validate:"required,identity"`
}

type ReorderTasksRequest struct {
	TaskIDs []string `json:"taskIds" validate:"required,dive,required"`
}

type ReorderLinksRequest struct {
	LinkIDs []string `json:"linkIds" validate:"required,dive,required"`
}

type TaskRequest struct {
	ID        string             `json:"id" validate:"required,max=128"`
	Title     string             `json:"title"`
	Note      string             `json:"note"`
	Tags      []string           `json:"tags"`
	Color     string             `json:"color" validate:"omitempty,palette"`
	Quadrant  model.Quadrant     `json:"q" validate:"quadrant"`
	Kanban    model.KanbanStatus `json:"kanban" validate:"kanban"`
	Completed bool               `json:"completed"`
	CreatedAt int64              `json:"createdAt" validate:"gte=0"`
	UpdatedAt int64              `json:"updatedAt" validate:"gte=0"`
}

func (r TaskRequest) Task() model.Task {
	return model.Task{
		ID:        r.ID,
		Title:     r.Title,
		Note:      r.Note,
		Tags:      r.Tags,
		Color:     r.Color,
		Quadrant:  r.Quadrant,
		Kanban:    r.Kanban,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type LinkRequest struct {
	ID        string `json:"id" validate:"required,max=128"`
	URL       string `json:"url" validate:"required"`
	Title     string `json:"title"`
	Favicon   string `json:"favicon"`
	CreatedAt int64  `json:"createdAt" validate:"gte=0"`
}

func (r LinkRequest) Link() model.Link {
	return model.Link{
		ID:        r.ID,
		URL:       r.URL,
		Title:     r.Title,
		Favicon:   r.Favicon,
		CreatedAt: r.CreatedAt,
	}
}

type UserDataRequest struct {
	Tasks     []TaskRequest `json:"tasks" validate:"dive"`
	Links     []LinkRequest `json:"links" validate:"dive"`
	CreatedAt int64         `json:"createdAt" validate:"gte=0"`
	UpdatedAt int64         `json:"updatedAt" validate:"gte=0"`
}

func (r UserDataRequest) UserData() model.UserData {
	data := model.UserData{
		Tasks:     make([]model.Task, len(r.Tasks)),
		Links:     make([]model.Link, len(r.Links)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for i, t := range r.Tasks {
		data.Tasks[i] = t.Task()
	}
	for i, l := range r.Links {
		data.Links[i] = l.Link()
	}
	return data
}
