package http

import (
	"errors"
	"fmt"

	"github.com/sagarc03/imghost"
)

// ErrInvalidBody is returned when a request body cannot be decoded or fails
// validation. It wraps imghost.ErrValidation so it maps to 400.
var ErrInvalidBody = fmt.Errorf("invalid request body: %w", imghost.ErrValidation)

// ErrNoIdentity is returned when a protected handler runs without an owner
// in its context.
var ErrNoIdentity = errors.Join(errors.New("no identity in request context"), imghost.ErrUnauthorized)
