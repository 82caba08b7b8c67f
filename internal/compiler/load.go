package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/deliver/internal/ir"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Bundle is the compiled content of a directory.
type Bundle struct {
	Items      []*ir.ItemDefinition
	Tests      []*ir.TestDefinition
	Deliveries []*ir.Delivery
	FileCount  int
}

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeCompile     = "E007" // Definition failed to compile
)

// LoadError represents an error that occurred while loading content.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDir loads and compiles the CUE package in dir. Items live under
// `item:`, tests under `test:` and deliveries under `delivery:`.
func LoadDir(dir string, mode LoadMode) (*Bundle, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("content directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing content directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	bundle, errs := CompileValue(value, mode)
	if bundle != nil {
		bundle.FileCount = len(cueFiles)
	}
	return bundle, errs
}

// CompileValue compiles every item, test and delivery of a built CUE value.
func CompileValue(value cue.Value, mode LoadMode) (*Bundle, []error) {
	bundle := &Bundle{}
	var errs []error

	sections := []struct {
		path    string
		compile func(cue.Value) error
	}{
		{"item", func(v cue.Value) error {
			def, err := CompileItem(v)
			if err == nil {
				bundle.Items = append(bundle.Items, def)
			}
			return err
		}},
		{"test", func(v cue.Value) error {
			def, err := CompileTest(v)
			if err == nil {
				bundle.Tests = append(bundle.Tests, def)
			}
			return err
		}},
		{"delivery", func(v cue.Value) error {
			d, err := CompileDelivery(v)
			if err == nil {
				bundle.Deliveries = append(bundle.Deliveries, d)
			}
			return err
		}},
	}

	for _, sec := range sections {
		val := value.LookupPath(cue.ParsePath(sec.path))
		if !val.Exists() {
			continue
		}
		iter, err := val.Fields()
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", sec.path, err)})
			if mode == LoadModeFailFast {
				return bundle, errs
			}
			continue
		}
		for iter.Next() {
			if err := sec.compile(iter.Value()); err != nil {
				errs = append(errs, convertCompileError(err, sec.path+"."+iter.Label()))
				if mode == LoadModeFailFast {
					return bundle, errs
				}
			}
		}
	}

	if len(bundle.Items) == 0 && len(bundle.Tests) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no items or tests found"})
	}
	return bundle, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
