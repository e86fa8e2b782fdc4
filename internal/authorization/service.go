package authorization

import (
	"context"
	"errors"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service decides whether an authenticated actor may perform action on object.
type Service interface {
	Authorize(ctx context.Context, actor string, role string, object string, action string) error
}
