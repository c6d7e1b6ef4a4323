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
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

func TestExpirationTimeNoLifecycle(t *testing.T) {
	ds := devserverv1.DevServer{}
	if _, ok := expirationTime(ds, time.Now()); ok {
		t.Fatalf("expected no expiration without a lifecycle")
	}
}

func TestExpirationTimeNoTTL(t *testing.T) {
	ds := devserverv1.DevServer{Spec: devserverv1.DevServerSpec{Lifecycle: &devserverv1.LifecycleConfig{}}}
	if _, ok := expirationTime(ds, time.Now()); ok {
		t.Fatalf("expected no expiration with an empty timeToLive")
	}
}

func TestExpirationTimeComputed(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := devserverv1.DevServer{
		ObjectMeta: metav1.ObjectMeta{CreationTimestamp: metav1.NewTime(created)},
		Spec:       devserverv1.DevServerSpec{Lifecycle: &devserverv1.LifecycleConfig{TimeToLive: "1h30m"}},
	}
	got, ok := expirationTime(ds, created)
	if !ok {
		t.Fatalf("expected a computed expiration")
	}
	want := created.Add(90 * time.Minute)
	if !got.Equal(want) {
		t.Fatalf("expirationTime = %v, want %v", got, want)
	}
}

func TestExpirationTimeInvalidTTLIsIgnored(t *testing.T) {
	ds := devserverv1.DevServer{Spec: devserverv1.DevServerSpec{Lifecycle: &devserverv1.LifecycleConfig{TimeToLive: "not-a-duration"}}}
	if _, ok := expirationTime(ds, time.Now()); ok {
		t.Fatalf("expected invalid TTL to be treated as no expiration, not a crash")
	}
}
