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

package controller

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

func flavorNamed(name string, isDefault bool) devserverv1.DevServerFlavor {
	f := devserverv1.DevServerFlavor{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if isDefault {
		f.Annotations = map[string]string{devserverv1.DefaultFlavorAnnotation: "true"}
	}
	return f
}

func TestResolveDefaultFlavorNoneAnnotated(t *testing.T) {
	got := resolveDefaultFlavor([]devserverv1.DevServerFlavor{flavorNamed("large", false), flavorNamed("small", false)})
	if got != "" {
		t.Fatalf("expected no default, got %q", got)
	}
}

func TestResolveDefaultFlavorSingleAnnotated(t *testing.T) {
	got := resolveDefaultFlavor([]devserverv1.DevServerFlavor{flavorNamed("large", false), flavorNamed("small", true)})
	if got != "small" {
		t.Fatalf("expected small, got %q", got)
	}
}

func TestResolveDefaultFlavorTieBreaksLexicographically(t *testing.T) {
	got := resolveDefaultFlavor([]devserverv1.DevServerFlavor{flavorNamed("zeta", true), flavorNamed("alpha", true)})
	if got != "alpha" {
		t.Fatalf("expected lexicographically smallest name alpha, got %q", got)
	}
}
