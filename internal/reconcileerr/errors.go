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

// Package reconcileerr classifies reconcile failures as Permanent (stop
// retrying until the spec changes) or Transient (retry with the controller's
// backoff), per the two error classes a reconcile handler can return.
package reconcileerr

import "errors"

// Permanent wraps an error that will not resolve itself by retrying; the
// spec must change first. Reconcilers surface it as status.phase=Failed.
type Permanent struct {
	err error
}

func (p *Permanent) Error() string { return p.err.Error() }
func (p *Permanent) Unwrap() error { return p.err }

// NewPermanent wraps err as a Permanent error.
func NewPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{err: err}
}

// Transient wraps an error expected to resolve on its own; the caller
// should requeue with backoff rather than fail the resource.
type Transient struct {
	err error
}

func (t *Transient) Error() string { return t.err.Error() }
func (t *Transient) Unwrap() error { return t.err }

// NewTransient wraps err as a Transient error.
func NewTransient(err error) error {
	if err == nil {
		return nil
	}
	return &Transient{err: err}
}

// IsPermanent reports whether err (or one it wraps) is a Permanent error.
func IsPermanent(err error) bool {
	var p *Permanent
	return errors.As(err, &p)
}

// IsTransient reports whether err (or one it wraps) is a Transient error.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}
