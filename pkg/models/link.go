package model

type Link struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Favicon   string `json:"favicon"`
	CreatedAt int64  `json:"createdAt"`
}

// LinkDraft is a link before the client assigns its id and creation time.
type LinkDraft struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Favicon string `json:"favicon"`
}

func (d LinkDraft) Link(id string, now int64) Link {
	return Link{
		ID:        id,
		URL:       d.URL,
		Title:     d.Title,
		Favicon:   d.Favicon,
		CreatedAt: now,
	}
}
