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

package reconcileerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsPermanent(t *testing.T) {
	base := errors.New("unknown flavor")
	wrapped := fmt.Errorf("validate: %w", NewPermanent(base))

	if !IsPermanent(wrapped) {
		t.Fatalf("expected wrapped error to be Permanent")
	}
	if IsTransient(wrapped) {
		t.Fatalf("expected wrapped error to not be Transient")
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected Unwrap chain to reach base error")
	}
}

func TestIsTransient(t *testing.T) {
	err := NewTransient(errors.New("connection reset"))
	if !IsTransient(err) {
		t.Fatalf("expected Transient")
	}
	if IsPermanent(err) {
		t.Fatalf("expected not Permanent")
	}
}

func TestNilWrap(t *testing.T) {
	if NewPermanent(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if NewTransient(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
}
