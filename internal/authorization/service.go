package authorization

import (
	"context"
	"errors"

	"github.com/smallbiznis/talentflow/internal/identity"
)

type Service interface {
	Authorize(ctx context.Context, actor identity.Actor, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
