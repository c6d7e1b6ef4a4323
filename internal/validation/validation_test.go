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

package validation

import (
	"testing"
	"time"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
	"github.com/devserver-io/devserver-operator/internal/reconcileerr"
)

const testPublicKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIJlfWnaRVLFLTLNgUPdetIFcNO6YoG9dCwh1P4XR1r1i test@example"

func validSpec() devserverv1.DevServerSpec {
	return devserverv1.DevServerSpec{
		Flavor: "standard",
		SSH:    devserverv1.SSHConfig{PublicKey: testPublicKey},
	}
}

func TestDevServerValid(t *testing.T) {
	if err := DevServer(validSpec()); err != nil {
		t.Fatalf("expected valid spec to pass, got %v", err)
	}
}

func TestParseTimeToLiveCombinedSuffixes(t *testing.T) {
	got, err := ParseTimeToLive("1h30m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 90 * time.Minute
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTimeToLiveBoundary(t *testing.T) {
	cases := []struct {
		name    string
		ttl     string
		wantErr bool
	}{
		{"zero", "0s", true},
		{"negative-like", "-1h", true},
		{"over-max", "8d", true},
		{"exactly-max", "7d", false},
		{"ok", "4h", false},
		{"absent", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spec := validSpec()
			if c.ttl != "" {
				spec.Lifecycle = &devserverv1.LifecycleConfig{TimeToLive: c.ttl}
			}
			err := DevServer(spec)
			if c.wantErr && err == nil {
				t.Fatalf("expected error for ttl %q", c.ttl)
			}
			if !c.wantErr && err != nil {
				t.Fatalf("unexpected error for ttl %q: %v", c.ttl, err)
			}
			if err != nil && !reconcileerr.IsPermanent(err) {
				t.Fatalf("expected Permanent error, got %v", err)
			}
		})
	}
}

func TestDuplicateMountPaths(t *testing.T) {
	spec := validSpec()
	spec.Volumes = []devserverv1.VolumeMount{
		{ClaimName: "a", MountPath: "/x"},
		{ClaimName: "b", MountPath: "/x"},
	}
	err := DevServer(spec)
	if err == nil {
		t.Fatalf("expected error for duplicate mount paths")
	}
	if !reconcileerr.IsPermanent(err) {
		t.Fatalf("expected Permanent error")
	}
}

func TestEmptyMountPath(t *testing.T) {
	spec := validSpec()
	spec.Volumes = []devserverv1.VolumeMount{{ClaimName: "a", MountPath: ""}}
	if err := DevServer(spec); err == nil {
		t.Fatalf("expected error for empty mountPath")
	}
}

func TestInvalidPublicKey(t *testing.T) {
	spec := validSpec()
	spec.SSH.PublicKey = "not-a-key"
	err := DevServer(spec)
	if err == nil {
		t.Fatalf("expected error for malformed public key")
	}
	if !reconcileerr.IsPermanent(err) {
		t.Fatalf("expected Permanent error")
	}
}

func TestMissingFlavor(t *testing.T) {
	spec := validSpec()
	spec.Flavor = ""
	if err := DevServer(spec); err == nil {
		t.Fatalf("expected error for missing flavor")
	}
}
