package site

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"handbook/app/internal/domain/content"
)

// ErrUnknownPage indicates the requested identity is not among the enumerated static params.
var ErrUnknownPage = eris.New("page is not among the static params")

// ErrInconsistentContent indicates an enumerated page could not be read back from the store.
var ErrInconsistentContent = eris.New("enumerated page could not be read")

// Stage names the step of a render that failed.
type Stage string

const (
	StageRead   Stage = "read"
	StageRender Stage = "render"
)

// PageError reports a failure rendering a single enumerated page.
type PageError struct {
	Stage  Stage
	Params content.Params
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Params, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// StageOf returns the failing stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var pageErr *PageError
	if errors.As(err, &pageErr) {
		return pageErr.Stage, true
	}
	return "", false
}
