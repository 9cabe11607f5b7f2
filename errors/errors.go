package errors

import "fmt"

var (
	ErrAuthenticationRequired = fmt.Errorf("authentication required")
	ErrNotFound               = fmt.Errorf("not found")
	ErrForbidden              = fmt.Errorf("forbidden")
	ErrValidation             = fmt.Errorf("validation failed")
	ErrConflict               = fmt.Errorf("conflicting write")
	ErrTransientStorage       = fmt.Errorf("transient storage failure")
	ErrNotConnected           = fmt.Errorf("subscription not connected")
	ErrWorkerPanic            = fmt.Errorf("worker panic")
)
