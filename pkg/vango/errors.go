package vango

import "errors"

// ErrEffectContext is the panic value when an effect helper such as
// Timeout runs without a runtime context.
var ErrEffectContext = errors.New("vango: effect helper called outside effect/render context")

// ErrHookContext is the panic value when a hook is called outside a
// component render.
var ErrHookContext = errors.New("vango: hook called outside component render")
