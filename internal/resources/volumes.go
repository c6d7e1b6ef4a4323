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
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

// HomeMountPath is the mount path every DevServer container carries for its
// user home directory, whether backed by an empty-dir or a PVC.
const HomeMountPath = "/home/dev"

// defaultHomeVolumeName names the empty-dir synthesized when no entry
// targets HomeMountPath.
const defaultHomeVolumeName = "home"

var nonDNSChars = regexp.MustCompile(`[^a-z0-9-]+`)
var repeatedHyphens = regexp.MustCompile(`-{2,}`)

// mountedVolume is the builder's internal, fully-resolved representation of
// one pod volume plus its mount, after the merge rule in spec.md §4.2 has
// been applied. An empty ClaimName means an empty-dir.
type mountedVolume struct {
	Name      string
	ClaimName string
	MountPath string
	ReadOnly  bool
}

// mergeVolumes implements the volume merging rule verbatim:
//  1. start from the flavor's volumes, then overlay the DevServer's,
//     keyed by mountPath (later entries win);
//  2. append a default empty-dir at HomeMountPath if nothing targets it;
//  3. otherwise drop the default home mount;
//  4. give every entry a stable, DNS-1123-safe generated name;
//  5. readOnly defaults to false (already the zero value).
//
// The DevServerFlavor kind in this data model carries no volumes of its
// own (see spec.md §3), so flavorVolumes is always empty in practice; the
// parameter is kept so the merge order documented above stays faithful to
// the rule even if a future Flavor field supplies one.
func mergeVolumes(flavorVolumes, specVolumes []devserverv1.VolumeMount) []mountedVolume {
	byPath := make(map[string]devserverv1.VolumeMount)
	var order []string

	overlay := func(vols []devserverv1.VolumeMount) {
		for _, v := range vols {
			if _, exists := byPath[v.MountPath]; !exists {
				order = append(order, v.MountPath)
			}
			byPath[v.MountPath] = v
		}
	}
	overlay(flavorVolumes)
	overlay(specVolumes)

	merged := make([]mountedVolume, 0, len(order)+1)
	haveHome := false
	for _, path := range order {
		v := byPath[path]
		if v.MountPath == HomeMountPath {
			haveHome = true
		}
		merged = append(merged, mountedVolume{
			Name:      stableVolumeName(v.ClaimName, v.MountPath),
			ClaimName: v.ClaimName,
			MountPath: v.MountPath,
			ReadOnly:  v.ReadOnly,
		})
	}

	if !haveHome {
		merged = append(merged, mountedVolume{
			Name:      defaultHomeVolumeName,
			MountPath: HomeMountPath,
		})
	}

	return merged
}

// stableVolumeName derives a DNS-1123-safe, stable volume name from a claim
// name and mount path per spec.md §4.2 rule 4.
func stableVolumeName(claimName, mountPath string) string {
	raw := "vol-" + sanitizeDNSLabel(claimName) + "-" + sanitizeDNSLabel(mountPath)
	if len(raw) <= 63 {
		return raw
	}

	sum := sha1.Sum([]byte(raw))
	suffix := hex.EncodeToString(sum[:])[:6]
	truncated := strings.TrimRight(raw[:63-7], "-")
	return truncated + "-" + suffix
}

func sanitizeDNSLabel(s string) string {
	lower := strings.ToLower(s)
	replaced := nonDNSChars.ReplaceAllString(lower, "-")
	return strings.Trim(repeatedHyphens.ReplaceAllString(replaced, "-"), "-")
}
