package render

import (
	"errors"
	"fmt"
)

// Stage names a pipeline stage in an Error.
type Stage string

const (
	StageCompile    Stage = "compile"
	StageStylesheet Stage = "stylesheet"
	StageParse      Stage = "parse"
	StageMath       Stage = "math"
	StageSerialize  Stage = "serialize"
	StageEncode     Stage = "encode"
)

// Error is a rendering failure in one stage of the pipeline.
type Error struct {
	Stylesheet string
	Stage      Stage
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %s: %v", e.Stylesheet, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap tags err with a stage unless an inner stage already claimed it.
func wrap(stylesheet string, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		if re.Stylesheet == "" {
			re.Stylesheet = stylesheet
		}
		return re
	}
	return &Error{Stylesheet: stylesheet, Stage: stage, Err: err}
}
