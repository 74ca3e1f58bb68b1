package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	model "notegrid.app/notegrid/pkg/models"
)

const (
	msgInvalidJSON   = "Invalid JSON format. Please check the file contents."
	msgNotAnObject   = "Invalid JSON: expected an object"
	msgNothingToLoad = "No valid tasks or links found in the file"
)

// ImportResult reports the outcome of Import. On failure nothing was changed.
type ImportResult struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	TasksImported int    `json:"tasksImported,omitempty"`
	LinksImported int    `json:"linksImported,omitempty"`
}

// ImportError is a malformed or empty import document.
type ImportError struct {
	Message string
}

func (e *ImportError) Error() string { return e.Message }

// exportDoc is the backup file layout written by Export.
type exportDoc struct {
	Tasks      []model.Task `json:"tasks"`
	Links      []model.Link `json:"links"`
	ExportedAt string       `json:"exportedAt"`
}

func encodeExport(data model.UserData, at time.Time) ([]byte, error) {
	doc := exportDoc{
		Tasks:      data.Tasks,
		Links:      data.Links,
		ExportedAt: at.UTC().Format(time.RFC3339Nano),
	}
	return sonic.ConfigStd.MarshalIndent(doc, "", "  ")
}

// parseImport coerces a loosely shaped document into a record. Every field
// with the wrong type falls back to its default; links without a url are
// dropped.
func parseImport(raw []byte, now int64, newID func() string) (model.UserData, error) {
	var parsed any
	if err := sonic.ConfigStd.Unmarshal(raw, &parsed); err != nil {
		return model.UserData{}, &ImportError{Message: msgInvalidJSON}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return model.UserData{}, &ImportError{Message: msgNotAnObject}
	}

	data := model.NewUserData(now)
	data.CreatedAt = timestampOr(obj["createdAt"], now)

	if items, ok := obj["tasks"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				data.Tasks = append(data.Tasks, coerceTask(m, now, newID))
			}
		}
	}
	if items, ok := obj["links"].([]any); ok {
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			link := coerceLink(m, now, newID)
			if strings.TrimSpace(link.URL) == "" {
				continue
			}
			data.Links = append(data.Links, link)
		}
	}

	if len(data.Tasks) == 0 && len(data.Links) == 0 {
		return model.UserData{}, &ImportError{Message: msgNothingToLoad}
	}
	return data, nil
}

func coerceTask(m map[string]any, now int64, newID func() string) model.Task {
	t := model.NewTask(idOr(m["id"], newID), now)
	t.Title = stringOr(m["title"], "")
	t.Note = stringOr(m["note"], "")
	if tags, ok := m["tags"].([]any); ok {
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				t.Tags = append(t.Tags, s)
			}
		}
	}
	if c := stringOr(m["color"], ""); model.ValidColor(c) {
		t.Color = c
	}
	if q := model.Quadrant(stringOr(m["q"], "")); q.Valid() {
		t.Quadrant = q
	}
	if k := model.KanbanStatus(stringOr(m["kanban"], "")); k.Valid() {
		t.Kanban = k
	}
	if done, ok := m["completed"].(bool); ok {
		t.Completed = done
	}
	t.CreatedAt = timestampOr(m["createdAt"], now)
	t.UpdatedAt = timestampOr(m["updatedAt"], now)
	return t
}

func coerceLink(m map[string]any, now int64, newID func() string) model.Link {
	return model.Link{
		ID:        idOr(m["id"], newID),
		URL:       strings.TrimSpace(stringOr(m["url"], "")),
		Title:     stringOr(m["title"], ""),
		Favicon:   stringOr(m["favicon"], ""),
		CreatedAt: timestampOr(m["createdAt"], now),
	}
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// idOr keeps a string id the API accepts and mints a new one otherwise.
func idOr(v any, newID func() string) string {
	if s, ok := v.(string); ok && model.ValidID(s) {
		return s
	}
	return newID()
}

// timestampOr keeps a positive millisecond time that a JSON number carries
// exactly and falls back to now otherwise.
func timestampOr(v any, now int64) int64 {
	if f, ok := v.(float64); ok && f >= 1 && f < 1<<53 {
		return int64(f)
	}
	return now
}

func importFailure(err error) ImportResult {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ImportResult{Error: ie.Message}
	}
	return ImportResult{Error: "Import failed: " + err.Error()}
}
