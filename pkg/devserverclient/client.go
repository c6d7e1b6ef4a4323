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

// Package devserverclient is the strongly-typed custom-resource access
// layer shared by the controller and any external client: typed CRUD for
// the three devserver.io kinds plus the watch-and-wait protocol
// (waitForStatus) both sides use to synchronise on status transitions.
//
// A single generic Client[T] serves DevServer, DevServerFlavor and
// DevServerUser instead of three hand-written wrappers.
package devserverclient

import (
	"context"
	"errors"
	"reflect"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ErrTimeout is returned by WaitForStatus when the deadline elapses with no
// matching status observed.
var ErrTimeout = errors.New("devserverclient: timeout waiting for status")

// ErrAlreadyEntered is returned by Scope when a scoped resource is entered
// twice; the client-side scope is single-use per spec.md §5.
var ErrAlreadyEntered = errors.New("devserverclient: scope already entered")

// Client is a generic typed wrapper around a client.WithWatch for one
// custom-resource kind T (a pointer type implementing client.Object, e.g.
// *v1.DevServer). client.WithWatch is used rather than a manager's cached
// client.Client because waitForStatus needs real watch support against the
// live apiserver, not the controller-runtime cache.
type Client[T client.Object] struct {
	wc        client.WithWatch
	newObject func() T
	newList   func() client.ObjectList
	getItems  func(client.ObjectList) []T
	namespace string // "" for cluster-scoped kinds
}

// New constructs a Client[T]. newObject must return a fresh zero-valued T
// on every call (e.g. func() *v1.DevServer { return &v1.DevServer{} }).
// newList and getItems do the same for the paired List type (e.g.
// func() client.ObjectList { return &v1.DevServerList{} } and a closure
// that type-asserts and returns .Items). Go methods cannot themselves be
// generic, so these per-kind adapters are supplied by the caller once, at
// construction, instead of being discovered via a shared interface.
// namespace scopes List/Watch for namespaced kinds; leave empty for
// cluster-scoped kinds or to list across all namespaces.
func New[T client.Object](wc client.WithWatch, namespace string, newObject func() T, newList func() client.ObjectList, getItems func(client.ObjectList) []T) *Client[T] {
	return &Client[T]{wc: wc, newObject: newObject, newList: newList, getItems: getItems, namespace: namespace}
}

// Get reads one object by name.
func (c *Client[T]) Get(ctx context.Context, namespace, name string) (T, error) {
	obj := c.newObject()
	key := types.NamespacedName{Name: name, Namespace: namespace}
	if err := c.wc.Get(ctx, key, obj); err != nil {
		var zero T
		return zero, err
	}
	return obj, nil
}

// Refresh re-reads obj's NamespacedName into obj in place.
func (c *Client[T]) Refresh(ctx context.Context, obj T) error {
	key := types.NamespacedName{Name: obj.GetName(), Namespace: obj.GetNamespace()}
	return c.wc.Get(ctx, key, obj)
}

// List returns every object of kind T in the Client's namespace (or
// cluster-wide for a cluster-scoped kind / empty namespace).
func (c *Client[T]) List(ctx context.Context, opts ...client.ListOption) ([]T, error) {
	listOpts := opts
	if c.namespace != "" {
		listOpts = append(append([]client.ListOption{}, opts...), client.InNamespace(c.namespace))
	}

	listObj := c.newList()
	if err := c.wc.List(ctx, listObj, listOpts...); err != nil {
		return nil, err
	}
	return c.getItems(listObj), nil
}

// Create creates obj.
func (c *Client[T]) Create(ctx context.Context, obj T) error {
	return c.wc.Create(ctx, obj)
}

// Update fully replaces obj.
func (c *Client[T]) Update(ctx context.Context, obj T) error {
	return c.wc.Update(ctx, obj)
}

// Patch applies patch (strategic merge, merge, etc.) to obj.
func (c *Client[T]) Patch(ctx context.Context, obj T, patch client.Patch) error {
	return c.wc.Patch(ctx, obj, patch)
}

// Delete deletes obj. Not-found is treated as success: deletion is
// idempotent per spec.md §7.
func (c *Client[T]) Delete(ctx context.Context, obj T) error {
	if err := c.wc.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	return nil
}

// Watch opens a raw watch over kind T.
func (c *Client[T]) Watch(ctx context.Context, opts ...client.ListOption) (watch.Interface, error) {
	listOpts := opts
	if c.namespace != "" {
		listOpts = append(append([]client.ListOption{}, opts...), client.InNamespace(c.namespace))
	}
	return c.wc.Watch(ctx, c.newList(), listOpts...)
}

// WaitForStatus blocks until name's status is a superset of subset, or
// timeout elapses. It implements the re-entrant refresh-watch-refresh
// protocol from spec.md §4.1:
//  1. refresh once at entry; return immediately if already satisfied;
//  2. open a watch bounded by timeout; on each event, invoke onEvent (if
//     non-nil) then check subset-match; on match, refresh once more to
//     confirm against authoritative state and return;
//  3. if the watch closes early with time remaining, refresh and reopen;
//  4. on timeout, one final refresh-and-check, then ErrTimeout.
func (c *Client[T]) WaitForStatus(ctx context.Context, namespace, name string, subset map[string]any, timeout time.Duration, onEvent func(watch.Event)) (T, error) {
	deadline := time.Now().Add(timeout)

	obj, err := c.Get(ctx, namespace, name)
	if err != nil {
		var zero T
		return zero, err
	}
	if matchesStatus(obj, subset) {
		return obj, nil
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.finalCheck(ctx, namespace, name, subset)
		}

		watchCtx, cancel := context.WithTimeout(ctx, remaining)
		w, err := c.Watch(watchCtx, client.InNamespace(namespace))
		if err != nil {
			cancel()
			var zero T
			return zero, err
		}

		matched, _, err := c.drainWatch(w, name, subset, onEvent)
		w.Stop()
		cancel()
		if err != nil {
			var zero T
			return zero, err
		}
		if matched {
			return c.finalCheck(ctx, namespace, name, subset)
		}
		// Watch closed early (or deadline context expired): refresh, then
		// loop back to reopen if time remains.
		if time.Until(deadline) > 0 {
			obj, err = c.Get(ctx, namespace, name)
			if err != nil {
				var zero T
				return zero, err
			}
			if matchesStatus(obj, subset) {
				return obj, nil
			}
		}
	}
}

func (c *Client[T]) drainWatch(w watch.Interface, name string, subset map[string]any, onEvent func(watch.Event)) (bool, T, error) {
	var zero T
	for event := range w.ResultChan() {
		if onEvent != nil {
			onEvent(event)
		}

		obj, ok := event.Object.(T)
		if !ok {
			continue
		}
		if obj.GetName() != name {
			continue
		}
		if matchesStatus(obj, subset) {
			return true, obj, nil
		}
	}
	return false, zero, nil
}

func (c *Client[T]) finalCheck(ctx context.Context, namespace, name string, subset map[string]any) (T, error) {
	obj, err := c.Get(ctx, namespace, name)
	if err != nil {
		var zero T
		return zero, err
	}
	if matchesStatus(obj, subset) {
		return obj, nil
	}
	var zero T
	return zero, ErrTimeout
}

// matchesStatus reports whether obj.status is a superset of subset.
func matchesStatus(obj client.Object, subset map[string]any) bool {
	u, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return false
	}
	status, _ := u["status"].(map[string]any)
	return SubsetMatch(subset, status)
}

// SubsetMatch reports whether every (key, value) pair in subset is present
// in superset with an equal value; extra keys in superset are irrelevant.
// This is the subset-match semantics spec.md's glossary defines.
func SubsetMatch(subset, superset map[string]any) bool {
	for k, v := range subset {
		sv, ok := superset[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(v, sv) {
			return false
		}
	}
	return true
}

