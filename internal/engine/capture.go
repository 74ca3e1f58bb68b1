package engine

import (
	"errors"
	"net/url"
	"strings"

	model "notegrid.app/notegrid/pkg/models"
)

var (
	ErrUnsupportedURL = errors.New("only http and https pages can be saved")
	ErrDuplicateLink  = errors.New("link already saved")
)

const faviconService = "https://www.google.com/s2/favicons?domain="

// draftFromPage builds the link saved for a browsed page. The title falls
// back to the host name.
func draftFromPage(rawURL, title string) (model.LinkDraft, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.LinkDraft{}, ErrUnsupportedURL
	}

	host := u.Hostname()
	title = strings.TrimSpace(title)
	if title == "" {
		title = host
	}
	return model.LinkDraft{
		URL:     u.String(),
		Title:   title,
		Favicon: faviconService + url.QueryEscape(host) + "&sz=64",
	}, nil
}
