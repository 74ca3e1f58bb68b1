package errors

import "net/http"

var ErrLinkNotFound = &Exception{
	Message:    "Link not found",
	StatusCode: http.StatusNotFound,
}
