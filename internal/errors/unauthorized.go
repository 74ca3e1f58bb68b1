package errors

import "net/http"

var ErrUnauthorized = &Exception{
	Message:    "Invalid or missing authorization",
	StatusCode: http.StatusUnauthorized,
}
