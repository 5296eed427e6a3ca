package post

import (
	"errors"
	"fmt"
)

// ErrNoImage is returned before any external call when the upload is empty.
var ErrNoImage = errors.New("no image supplied")

// Stage names a step of CreatePost.
type Stage string

const (
	StageCaption     Stage = "caption"
	StageStorage     Stage = "storage"
	StagePersistence Stage = "persistence"
)

// StageError reports which step failed. Err is the collaborator's error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// IsStage reports whether err is a StageError for stage.
func IsStage(err error, stage Stage) bool {
	s, ok := FailedStage(err)
	return ok && s == stage
}
