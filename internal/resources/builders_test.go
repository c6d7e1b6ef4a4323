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

package resources

import (
	"reflect"
	"strings"
	"testing"

	corev1 "k8s.io/api/core/v1"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

func baseInputs() Inputs {
	return Inputs{
		Name:      "alice-box",
		Namespace: "dev-alice",
		Spec: devserverv1.DevServerSpec{
			Flavor: "standard",
			SSH:    devserverv1.SSHConfig{PublicKey: "ssh-ed25519 AAAA..."},
		},
		Flavor: &devserverv1.DevServerFlavor{
			Spec: devserverv1.DevServerFlavorSpec{},
		},
		Defaults: Defaults{DefaultDevServerImage: "devserver:latest"},
	}
}

func volumeNamed(vols []corev1.Volume, name string) (corev1.Volume, bool) {
	for _, v := range vols {
		if v.Name == name {
			return v, true
		}
	}
	return corev1.Volume{}, false
}

// Scenario 1: ephemeral home — no spec.volumes.
func TestBuildEphemeralHome(t *testing.T) {
	built := Build(baseInputs())
	home, ok := volumeNamed(built.Deployment.Spec.Template.Spec.Volumes, "home")
	if !ok {
		t.Fatalf("expected default empty-dir volume named home")
	}
	if home.EmptyDir == nil {
		t.Fatalf("expected home volume to be an empty-dir")
	}
	for _, m := range built.Deployment.Spec.Template.Spec.Containers[0].VolumeMounts {
		if m.MountPath == HomeMountPath && m.Name != "home" {
			t.Fatalf("expected /home/dev mount to reference the home volume, got %q", m.Name)
		}
	}
}

// Scenario 2: PVC home override.
func TestBuildPVCHomeOverride(t *testing.T) {
	in := baseInputs()
	in.Spec.Volumes = []devserverv1.VolumeMount{{ClaimName: "home-pvc", MountPath: HomeMountPath}}
	built := Build(in)

	if _, ok := volumeNamed(built.Deployment.Spec.Template.Spec.Volumes, "home"); ok {
		t.Fatalf("expected no default empty-dir home volume")
	}

	found := false
	for _, v := range built.Deployment.Spec.Template.Spec.Volumes {
		if v.PersistentVolumeClaim != nil && v.PersistentVolumeClaim.ClaimName == "home-pvc" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a PVC-backed volume referencing home-pvc")
	}
}

// Scenario 3: multiple mounts, one read-only.
func TestBuildMultipleMounts(t *testing.T) {
	in := baseInputs()
	in.Spec.Volumes = []devserverv1.VolumeMount{
		{ClaimName: "home-pvc", MountPath: HomeMountPath},
		{ClaimName: "data-pvc", MountPath: "/data", ReadOnly: true},
	}
	built := Build(in)

	if _, ok := volumeNamed(built.Deployment.Spec.Template.Spec.Volumes, "home"); ok {
		t.Fatalf("expected no default empty-dir home volume")
	}

	var dataMount *corev1.VolumeMount
	for i, m := range built.Deployment.Spec.Template.Spec.Containers[0].VolumeMounts {
		if m.MountPath == "/data" {
			dataMount = &built.Deployment.Spec.Template.Spec.Containers[0].VolumeMounts[i]
		}
	}
	if dataMount == nil {
		t.Fatalf("expected a mount at /data")
	}
	if !dataMount.ReadOnly {
		t.Fatalf("expected /data mount to be read-only")
	}
}

// Scenario 8: updating the image patches the same Deployment name.
func TestBuildImageOverride(t *testing.T) {
	in := baseInputs()
	in.Spec.Image = "custom:v2"
	built := Build(in)
	if built.Deployment.Spec.Template.Spec.Containers[0].Image != "custom:v2" {
		t.Fatalf("expected container image to be custom:v2")
	}
	if built.Deployment.Name != in.Name {
		t.Fatalf("expected deployment name to equal DevServer name")
	}
}

func TestBuildDefaultImageWhenUnset(t *testing.T) {
	built := Build(baseInputs())
	if built.Deployment.Spec.Template.Spec.Containers[0].Image != "devserver:latest" {
		t.Fatalf("expected default image to be used")
	}
}

func TestBuildIsPure(t *testing.T) {
	in := baseInputs()
	first := Build(in)
	second := Build(in)
	if !reflect.DeepEqual(first.Deployment, second.Deployment) {
		t.Fatalf("expected Build to be a pure function of its inputs")
	}
}

func TestBuildServiceOptIn(t *testing.T) {
	in := baseInputs()
	built := Build(in)
	if built.Service != nil {
		t.Fatalf("expected no Service by default")
	}

	in.Spec.SSH.ExposeService = true
	built = Build(in)
	if built.Service == nil {
		t.Fatalf("expected a Service when exposeService is set")
	}
}

func TestStableVolumeNameWithinLimit(t *testing.T) {
	name := stableVolumeName("data-pvc", "/data")
	if len(name) > 63 {
		t.Fatalf("volume name exceeds 63 characters: %q", name)
	}
	if !strings.HasPrefix(name, "vol-data-pvc-data") {
		t.Fatalf("unexpected volume name: %q", name)
	}
}

func TestStableVolumeNameLongInputsTruncated(t *testing.T) {
	longClaim := strings.Repeat("a", 60)
	deepPath := "/very/deeply/nested/mount/path/for/this/volume/claim/thing"
	name := stableVolumeName(longClaim, deepPath)
	if len(name) > 63 {
		t.Fatalf("volume name exceeds 63 characters: %d: %q", len(name), name)
	}
	// Deterministic: same inputs always produce the same truncated name.
	if name != stableVolumeName(longClaim, deepPath) {
		t.Fatalf("expected stable volume name generation")
	}
}

func TestPersistentHomeSynthesizesVolume(t *testing.T) {
	in := baseInputs()
	in.Spec.PersistentHome = &devserverv1.PersistentHomeConfig{Enabled: true}
	built := Build(in)

	if built.PVC == nil {
		t.Fatalf("expected a synthesized home PVC")
	}
	if built.PVC.Name != in.Name+"-home" {
		t.Fatalf("unexpected PVC name: %q", built.PVC.Name)
	}

	found := false
	for _, v := range built.Deployment.Spec.Template.Spec.Volumes {
		if v.PersistentVolumeClaim != nil && v.PersistentVolumeClaim.ClaimName == built.PVC.Name {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the deployment to mount the synthesized home PVC")
	}
}

// The startup.sh mount uses SubPath, so MountPath must name the destination
// file directly and match the container's entrypoint command.
func TestStartupScriptMountPathMatchesCommand(t *testing.T) {
	built := Build(baseInputs())
	container := built.Deployment.Spec.Template.Spec.Containers[0]

	var startupMount *corev1.VolumeMount
	for i := range container.VolumeMounts {
		m := container.VolumeMounts[i]
		if m.Name == "devserver-config" && m.SubPath == "startup.sh" {
			startupMount = &m
		}
	}
	if startupMount == nil {
		t.Fatalf("expected a devserver-config mount with subPath startup.sh")
	}
	if len(container.Command) == 0 || startupMount.MountPath != container.Command[0] {
		t.Fatalf("startup.sh mount path %q must match container command %v", startupMount.MountPath, container.Command)
	}
}
