package errors

import "net/http"

var ErrAlreadyRegistered = &Exception{
	Message:    "UUID already registered",
	StatusCode: http.StatusConflict,
}

var ErrTaskExists = &Exception{
	Message:    "Task already exists",
	StatusCode: http.StatusConflict,
}

var ErrLinkExists = &Exception{
	Message:    "Link already exists",
	StatusCode: http.StatusConflict,
}
