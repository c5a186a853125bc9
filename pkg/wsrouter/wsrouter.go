package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingType = errors.New("message has no type")
	ErrUnknownType = errors.New("unknown message type")
	ErrBadPayload  = errors.New("malformed message payload")
)

// HandlerFunc receives the whole frame decoded into T.
type HandlerFunc[T any] func(ctx context.Context, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type route func(ctx context.Context, frame []byte) error

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]route)}
}

// Use appends middlewares. They wrap handlers registered afterwards as well as before.
func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// Handle registers a typed handler for messageType.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, frame []byte) error {
		var payload T
		if err := json.Unmarshal(frame, &payload); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadPayload, messageType, err)
		}

		var h HandlerFunc[any] = func(ctx context.Context, p any) error {
			return handler(ctx, p.(T))
		}
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			h = r.middlewares[i](h)
		}

		return h(ctx, payload)
	}
}

// ServeFrame routes one text frame by its top-level "type" field.
func (r *WSRouter) ServeFrame(ctx context.Context, frame []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if head.Type == "" {
		return ErrMissingType
	}

	handler, exists := r.routes[head.Type]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownType, head.Type)
	}

	return handler(context.WithValue(ctx, messageTypeKey, head.Type), frame)
}
