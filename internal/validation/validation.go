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

// Package validation performs syntactic and semantic checks on a DevServer
// declaration before any reconciliation side effect runs.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
	"github.com/devserver-io/devserver-operator/internal/reconcileerr"
)

// MaxTimeToLive is the upper bound on spec.lifecycle.timeToLive.
const MaxTimeToLive = 7 * 24 * time.Hour

var (
	durationTermRE     = regexp.MustCompile(`(\d+)([dhms])`)
	combinedDurationRE = regexp.MustCompile(`^(\d+[dhms])+$`)
)

// ParseTimeToLive accepts the integer-suffix forms spec.md §4.8 describes
// (s|m|h|d, combinable as "1h30m") in addition to Go's native duration
// syntax, falling back to time.ParseDuration when the string isn't entirely
// made of combinable suffix terms — a leading "-" or any other stray
// character takes this path, so time.ParseDuration's own sign handling
// applies instead of being silently ignored.
func ParseTimeToLive(s string) (time.Duration, error) {
	if !combinedDurationRE.MatchString(s) {
		return time.ParseDuration(s)
	}
	matches := durationTermRE.FindAllStringSubmatch(s, -1)

	var total time.Duration
	for _, m := range matches {
		value, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, err
		}
		switch m[2] {
		case "d":
			total += time.Duration(value) * 24 * time.Hour
		case "h":
			total += time.Duration(value) * time.Hour
		case "m":
			total += time.Duration(value) * time.Minute
		case "s":
			total += time.Duration(value) * time.Second
		}
	}
	return total, nil
}

// DevServer validates a DevServer spec, returning a reconcileerr.Permanent
// error for the first violation found. A nil return means the spec is safe
// to reconcile.
func DevServer(spec devserverv1.DevServerSpec) error {
	if spec.Flavor == "" {
		return reconcileerr.NewPermanent(fmt.Errorf("spec.flavor is required"))
	}

	if err := timeToLive(spec); err != nil {
		return err
	}

	if err := volumes(spec); err != nil {
		return err
	}

	if err := sshPublicKey(spec.SSH.PublicKey); err != nil {
		return err
	}

	return nil
}

func timeToLive(spec devserverv1.DevServerSpec) error {
	if spec.Lifecycle == nil || spec.Lifecycle.TimeToLive == "" {
		return nil
	}

	ttl, err := ParseTimeToLive(spec.Lifecycle.TimeToLive)
	if err != nil {
		return reconcileerr.NewPermanent(fmt.Errorf("spec.lifecycle.timeToLive %q: %w", spec.Lifecycle.TimeToLive, err))
	}
	if ttl <= 0 {
		return reconcileerr.NewPermanent(fmt.Errorf("spec.lifecycle.timeToLive must be greater than zero, got %q", spec.Lifecycle.TimeToLive))
	}
	if ttl > MaxTimeToLive {
		return reconcileerr.NewPermanent(fmt.Errorf("spec.lifecycle.timeToLive %q exceeds the 7 day maximum", spec.Lifecycle.TimeToLive))
	}
	return nil
}

func volumes(spec devserverv1.DevServerSpec) error {
	seen := make(map[string]struct{}, len(spec.Volumes))
	for _, v := range spec.Volumes {
		if v.MountPath == "" {
			return reconcileerr.NewPermanent(fmt.Errorf("spec.volumes entry for claim %q has an empty mountPath", v.ClaimName))
		}
		if _, dup := seen[v.MountPath]; dup {
			return reconcileerr.NewPermanent(fmt.Errorf("spec.volumes has duplicate mountPath %q", v.MountPath))
		}
		seen[v.MountPath] = struct{}{}
	}
	return nil
}

// sshPublicKey checks that spec.ssh.publicKey parses as an
// authorized_keys-style entry (key type + base64 payload). Recovered from
// original_source's validation module; the distilled spec is silent on it
// but it is a cheap, clearly-intended check before seeding authorized_keys.
func sshPublicKey(key string) error {
	if key == "" {
		return reconcileerr.NewPermanent(fmt.Errorf("spec.ssh.publicKey is required"))
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
		return reconcileerr.NewPermanent(fmt.Errorf("spec.ssh.publicKey is not a valid authorized_keys entry: %w", err))
	}
	return nil
}
