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

import "testing"

func TestSubsetMatchExactAndExtraKeys(t *testing.T) {
	superset := map[string]any{"phase": "Running", "message": "ok", "unrelated": 42}
	subset := map[string]any{"phase": "Running"}

	if !SubsetMatch(subset, superset) {
		t.Fatalf("expected subset to match despite extra superset keys")
	}
}

func TestSubsetMatchMissingKey(t *testing.T) {
	superset := map[string]any{"phase": "Pending"}
	subset := map[string]any{"phase": "Running"}

	if SubsetMatch(subset, superset) {
		t.Fatalf("expected mismatch on differing value")
	}
}

func TestSubsetMatchEmptySubsetAlwaysMatches(t *testing.T) {
	if !SubsetMatch(map[string]any{}, map[string]any{"phase": "Failed"}) {
		t.Fatalf("expected empty subset to trivially match")
	}
}

func TestSubsetMatchNilSuperset(t *testing.T) {
	if SubsetMatch(map[string]any{"phase": "Running"}, nil) {
		t.Fatalf("expected no match against a nil superset")
	}
}
