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
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
	"github.com/devserver-io/devserver-operator/internal/validation"
	"github.com/devserver-io/devserver-operator/pkg/metrics"
)

// ExpirationReconciler deletes DevServers whose time-to-live has elapsed
// (C9). Polling, not per-object timers, is the explicit design choice for
// scale simplicity up to a few hundred DevServers.
type ExpirationReconciler struct {
	Client   client.Client
	Interval time.Duration
}

// +kubebuilder:rbac:groups=devserver.io,resources=devservers,verbs=get;list;watch;delete

// Start runs the expiration sweep loop until ctx is cancelled.
func (r *ExpirationReconciler) Start(ctx context.Context) error {
	log := logf.FromContext(ctx).WithName("expiration-controller")
	interval := r.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		runID := uuid.New().String()
		runLog := log.WithValues("run", runID)

		n, err := r.sweep(logf.IntoContext(ctx, runLog))
		if err != nil {
			runLog.Error(err, "expiration sweep failed")
			continue
		}
		metrics.RecordExpirations(n)
		runLog.Info("expiration sweep complete", "expired", n)
	}
}

// NeedLeaderElection reports that expiration sweeps should only run on the
// elected leader, avoiding duplicate concurrent deletes.
func (r *ExpirationReconciler) NeedLeaderElection() bool {
	return true
}

func (r *ExpirationReconciler) sweep(ctx context.Context) (int, error) {
	log := logf.FromContext(ctx)

	var list devserverv1.DevServerList
	if err := r.Client.List(ctx, &list); err != nil {
		return 0, err
	}

	now := time.Now()
	var expired []devserverv1.DevServer
	for _, ds := range list.Items {
		expiresAt, ok := expirationTime(ds, now)
		if !ok {
			continue
		}
		if now.After(expiresAt) {
			expired = append(expired, ds)
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0
	for i := range expired {
		ds := &expired[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Client.Delete(ctx, ds); err != nil && !apierrors.IsNotFound(err) {
				log.Error(err, "failed to delete expired DevServer", "devserver", ds.Name, "namespace", ds.Namespace)
				return
			}
			mu.Lock()
			count++
			mu.Unlock()
		}()
	}
	wg.Wait()

	return count, nil
}

// expirationTime reports the DevServer's computed expiry and whether a TTL
// is set at all; a DevServer with no lifecycle.timeToLive never expires.
func expirationTime(ds devserverv1.DevServer, now time.Time) (time.Time, bool) {
	if ds.Spec.Lifecycle == nil || ds.Spec.Lifecycle.TimeToLive == "" {
		return time.Time{}, false
	}
	ttl, err := validation.ParseTimeToLive(ds.Spec.Lifecycle.TimeToLive)
	if err != nil {
		return time.Time{}, false
	}
	return ds.CreationTimestamp.Add(ttl), true
}
