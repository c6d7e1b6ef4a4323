/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package devserverclient

import (
	"context"
	"sync/atomic"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Scope ports the source's "context-manager lifetime" idiom (spec.md §9):
// entering a scope creates the resource and waits for readiness; exiting
// deletes it, ignoring not-found. A Scope is single-use — re-entry is
// rejected — matching the "per-object serialisation in clients" rule in
// spec.md §5.
type Scope[T client.Object] struct {
	c            *Client[T]
	readySubset  map[string]any
	readyTimeout time.Duration
	entered      atomic.Bool
}

// NewScope builds a Scope bound to c. readySubset is the status subset
// WaitForStatus waits for after Enter creates the object.
func NewScope[T client.Object](c *Client[T], readySubset map[string]any, readyTimeout time.Duration) *Scope[T] {
	return &Scope[T]{c: c, readySubset: readySubset, readyTimeout: readyTimeout}
}

// Enter creates obj and blocks until its status matches the scope's ready
// subset. It may be called at most once per Scope.
func (s *Scope[T]) Enter(ctx context.Context, obj T) (T, error) {
	if !s.entered.CompareAndSwap(false, true) {
		var zero T
		return zero, ErrAlreadyEntered
	}

	if err := s.c.Create(ctx, obj); err != nil {
		var zero T
		return zero, err
	}

	return s.c.WaitForStatus(ctx, obj.GetNamespace(), obj.GetName(), s.readySubset, s.readyTimeout, nil)
}

// Exit deletes the scope's object, ignoring not-found.
func (s *Scope[T]) Exit(ctx context.Context, obj T) error {
	return s.c.Delete(ctx, obj)
}
