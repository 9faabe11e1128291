package block

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeRequired is returned when registering or rendering without a block type.
	ErrTypeRequired = errors.New("block: type is required")
	// ErrRendererRequired is returned when a descriptor carries no renderer.
	ErrRendererRequired = errors.New("block: renderer is required")
	// ErrDuplicateType matches every DuplicateTypeError.
	ErrDuplicateType = errors.New("block: type already registered")
	// ErrUnknownType matches every UnknownTypeError.
	ErrUnknownType = errors.New("block: unknown type")
	// ErrLoad matches every LoadError.
	ErrLoad = errors.New("block: load failed")
	// ErrRender matches every RenderError.
	ErrRender = errors.New("block: render failed")
)

// DuplicateTypeError signals a second registration for the same type.
type DuplicateTypeError struct {
	Type Type
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("block: type %q already registered", e.Type)
}

func (e *DuplicateTypeError) Is(target error) bool {
	return target == ErrDuplicateType
}

// UnknownTypeError signals a lookup for a type with no registered renderer.
type UnknownTypeError struct {
	Type Type
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("block: no renderer registered for type %q", e.Type)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

// LoadError wraps a failure from a renderer's Load hook.
type LoadError struct {
	Type       Type
	InstanceID string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("block: load %s (%s): %v", e.Type, instanceLabel(e.InstanceID), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// RenderError wraps a failure or panic raised by a renderer's Execute.
type RenderError struct {
	Type       Type
	InstanceID string
	Err        error
	Panicked   bool
}

func (e *RenderError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("block: render %s (%s) panicked: %v", e.Type, instanceLabel(e.InstanceID), e.Err)
	}
	return fmt.Sprintf("block: render %s (%s): %v", e.Type, instanceLabel(e.InstanceID), e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}

func instanceLabel(id string) string {
	if id == "" {
		return "anonymous"
	}
	return id
}
