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
	"sort"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

// FlavorReconciler recomputes DevServerFlavor.status.default on a timer
// (C8). It implements manager.Runnable rather than handling individual
// watch events: flavor defaulting is a cluster-wide, periodic recompute,
// not a per-object reaction.
type FlavorReconciler struct {
	Client   client.Client
	Interval time.Duration
}

// +kubebuilder:rbac:groups=devserver.io,resources=devserverflavors,verbs=get;list;watch
// +kubebuilder:rbac:groups=devserver.io,resources=devserverflavors/status,verbs=get;update;patch

// Start runs the recompute loop until ctx is cancelled.
func (r *FlavorReconciler) Start(ctx context.Context) error {
	log := logf.FromContext(ctx).WithName("flavor-reconciler")
	interval := r.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runID := uuid.New().String()
		runLog := log.WithValues("run", runID)
		if err := r.tick(logf.IntoContext(ctx, runLog)); err != nil {
			runLog.Error(err, "flavor default recompute failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// NeedLeaderElection reports that the default recompute should only run on
// the elected leader, avoiding duplicate concurrent patches.
func (r *FlavorReconciler) NeedLeaderElection() bool {
	return true
}

func (r *FlavorReconciler) tick(ctx context.Context) error {
	log := logf.FromContext(ctx)

	var list devserverv1.DevServerFlavorList
	if err := r.Client.List(ctx, &list); err != nil {
		return err
	}

	defaultName := resolveDefaultFlavor(list.Items)

	for i := range list.Items {
		flavor := &list.Items[i]
		wantDefault := flavor.Name == defaultName
		if flavor.Status.Default == wantDefault {
			continue
		}
		patch := client.MergeFrom(flavor.DeepCopy())
		flavor.Status.Default = wantDefault
		if err := r.Client.Status().Patch(ctx, flavor, patch); err != nil {
			log.Error(err, "failed to patch flavor default status", "flavor", flavor.Name)
			continue
		}
	}
	return nil
}

// resolveDefaultFlavor implements the deterministic tie-break: among
// flavors annotated devserver.io/default=true, the lexicographically
// smallest name wins; if none are annotated, no flavor is default.
func resolveDefaultFlavor(flavors []devserverv1.DevServerFlavor) string {
	var candidates []string
	for _, f := range flavors {
		if f.Annotations[devserverv1.DefaultFlavorAnnotation] == "true" {
			candidates = append(candidates, f.Name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}
