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
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
	"github.com/devserver-io/devserver-operator/internal/config"
	"github.com/devserver-io/devserver-operator/internal/hostkeys"
	"github.com/devserver-io/devserver-operator/internal/reconcileerr"
	"github.com/devserver-io/devserver-operator/internal/resources"
	"github.com/devserver-io/devserver-operator/internal/validation"
	"github.com/devserver-io/devserver-operator/pkg/metrics"
)

// DevServerReconciler reconciles a DevServer object: validate, ensure host
// keys, build the child set, reconcile it against the cluster, and patch
// status (C6).
type DevServerReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Config   config.OperatorConfig
	Recorder record.EventRecorder
}

// +kubebuilder:rbac:groups=devserver.io,resources=devservers,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=devserver.io,resources=devservers/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=devserver.io,resources=devserverflavors,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=configmaps,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch;create
// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=persistentvolumeclaims,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete

// Reconcile drives one DevServer towards its declared spec.
func (r *DevServerReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)
	start := time.Now()

	devServer := &devserverv1.DevServer{}
	if err := r.Get(ctx, req.NamespacedName, devServer); err != nil {
		if apierrors.IsNotFound(err) {
			log.Info("DevServer not found, assuming it was deleted; children cascade via owner references")
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if !devServer.DeletionTimestamp.IsZero() {
		log.Info("DevServer is being deleted; children cascade via owner references", "devserver", devServer.Name)
		return ctrl.Result{}, nil
	}

	result, err := r.reconcile(ctx, devServer)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if devServer.Status.Phase == devserverv1.DevServerPhaseFailed {
		outcome = "failed"
	}
	metrics.RecordReconcile("devserver", outcome, time.Since(start).Seconds())
	return result, err
}

func (r *DevServerReconciler) reconcile(ctx context.Context, devServer *devserverv1.DevServer) (ctrl.Result, error) {
	log := logf.FromContext(ctx)
	statusPatch := client.MergeFrom(devServer.DeepCopy())

	if err := validation.DevServer(devServer.Spec); err != nil {
		return r.fail(ctx, devServer, statusPatch, "", err)
	}

	flavor := &devserverv1.DevServerFlavor{}
	if err := r.Get(ctx, types.NamespacedName{Name: devServer.Spec.Flavor}, flavor); err != nil {
		if apierrors.IsNotFound(err) {
			err = reconcileerr.NewPermanent(fmt.Errorf("flavor %q not found", devServer.Spec.Flavor))
		}
		return r.fail(ctx, devServer, statusPatch, devserverv1.DevServerConditionFlavorResolved, err)
	}
	meta.SetStatusCondition(&devServer.Status.Conditions, metav1.Condition{
		Type: devserverv1.DevServerConditionFlavorResolved, Status: metav1.ConditionTrue, Reason: "Resolved", Message: flavor.Name,
	})

	if _, err := hostkeys.Ensure(ctx, r.Client, r.Scheme, devServer, devServer.Namespace, devServer.Name); err != nil {
		return r.fail(ctx, devServer, statusPatch, devserverv1.DevServerConditionHostKeysReady, err)
	}
	meta.SetStatusCondition(&devServer.Status.Conditions, metav1.Condition{
		Type: devserverv1.DevServerConditionHostKeysReady, Status: metav1.ConditionTrue, Reason: "Provisioned",
	})

	persistentHomeSize, err := r.Config.PersistentHomeQuantity()
	if err != nil {
		return r.fail(ctx, devServer, statusPatch, "", reconcileerr.NewTransient(fmt.Errorf("parse defaultPersistentHomeSize: %w", err)))
	}

	built := resources.Build(resources.Inputs{
		Name:      devServer.Name,
		Namespace: devServer.Namespace,
		Spec:      devServer.Spec,
		Flavor:    flavor,
		Defaults: resources.Defaults{
			DefaultDevServerImage:     r.Config.DefaultDevServerImage,
			StaticDependenciesImage:   r.Config.StaticDependenciesImage,
			DefaultPersistentHomeSize: persistentHomeSize,
		},
	})

	// Children are reconciled in a fixed order so the pod's ConfigMap and
	// PVC mounts exist before the workload that depends on them starts.
	if built.PVC != nil {
		if err := r.reconcileChild(ctx, devServer, built.PVC, &corev1.PersistentVolumeClaim{}); err != nil {
			return r.fail(ctx, devServer, statusPatch, "", reconcileerr.NewTransient(err))
		}
	}
	if err := r.reconcileChild(ctx, devServer, built.ConfigMap, &corev1.ConfigMap{}); err != nil {
		return r.fail(ctx, devServer, statusPatch, "", reconcileerr.NewTransient(err))
	}
	if built.Service != nil {
		if err := r.reconcileChild(ctx, devServer, built.Service, &corev1.Service{}); err != nil {
			return r.fail(ctx, devServer, statusPatch, "", reconcileerr.NewTransient(err))
		}
	}
	if err := r.reconcileChild(ctx, devServer, built.Deployment, &appsv1.Deployment{}); err != nil {
		return r.fail(ctx, devServer, statusPatch, devserverv1.DevServerConditionWorkloadReady, reconcileerr.NewTransient(err))
	}

	meta.SetStatusCondition(&devServer.Status.Conditions, metav1.Condition{
		Type: devserverv1.DevServerConditionWorkloadReady, Status: metav1.ConditionTrue, Reason: "Reconciled",
	})
	meta.SetStatusCondition(&devServer.Status.Conditions, metav1.Condition{
		Type: devserverv1.DevServerConditionReady, Status: metav1.ConditionTrue, Reason: "Reconciled",
	})
	devServer.Status.Phase = devserverv1.DevServerPhaseRunning
	devServer.Status.Message = fmt.Sprintf("%s reconciled", built.Deployment.Name)

	if err := r.Status().Patch(ctx, devServer, statusPatch); err != nil {
		log.Error(err, "failed to patch DevServer status")
		return ctrl.Result{}, err
	}

	if r.Config.PostingEnabled && r.Recorder != nil {
		r.Recorder.Event(devServer, corev1.EventTypeNormal, "Reconciled", devServer.Status.Message)
	}

	log.Info("DevServer reconciled", "devserver", devServer.Name)
	return ctrl.Result{}, nil
}

// fail classifies err: Permanent errors are terminal for this spec revision
// (status set to Failed, no requeue — the DevServer is only reconciled again
// when a new watch event arrives, such as a spec change); Transient errors
// are returned for the controller's backoff.
func (r *DevServerReconciler) fail(ctx context.Context, devServer *devserverv1.DevServer, statusPatch client.Patch, condition string, err error) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	if reconcileerr.IsPermanent(err) {
		if condition != "" {
			meta.SetStatusCondition(&devServer.Status.Conditions, metav1.Condition{
				Type: condition, Status: metav1.ConditionFalse, Reason: "Failed", Message: err.Error(),
			})
		}
		devServer.Status.Phase = devserverv1.DevServerPhaseFailed
		msg := err.Error()
		if len(msg) > 1024 {
			msg = msg[:1024]
		}
		devServer.Status.Message = msg
		if patchErr := r.Status().Patch(ctx, devServer, statusPatch); patchErr != nil {
			log.Error(patchErr, "failed to patch DevServer status to Failed")
			return ctrl.Result{}, patchErr
		}
		if r.Config.PostingEnabled && r.Recorder != nil {
			r.Recorder.Event(devServer, corev1.EventTypeWarning, "ValidationFailed", err.Error())
		}
		log.Info("DevServer failed validation, will not retry until spec changes", "devserver", devServer.Name, "reason", err.Error())
		return ctrl.Result{}, nil
	}

	log.Error(err, "transient error reconciling DevServer, will retry", "devserver", devServer.Name)
	return ctrl.Result{}, err
}

// reconcileChild sets desired's controller owner reference to owner, then
// reads the existing object into existing (a fresh zero value of the same
// concrete type); absent, it creates desired; present, it patches existing
// with desired's spec. An already-exists race on create is treated as a
// signal to re-read and patch instead.
func (r *DevServerReconciler) reconcileChild(ctx context.Context, owner client.Object, desired client.Object, existing client.Object) error {
	log := logf.FromContext(ctx)

	if err := controllerutil.SetControllerReference(owner, desired, r.Scheme); err != nil {
		return fmt.Errorf("set owner reference on %T %s: %w", desired, desired.GetName(), err)
	}

	key := types.NamespacedName{Name: desired.GetName(), Namespace: desired.GetNamespace()}
	err := r.Get(ctx, key, existing)
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return fmt.Errorf("get %T %s: %w", desired, desired.GetName(), err)
		}
		log.Info("creating child object", "kind", fmt.Sprintf("%T", desired), "name", desired.GetName())
		if createErr := r.Create(ctx, desired); createErr != nil {
			if apierrors.IsAlreadyExists(createErr) {
				if getErr := r.Get(ctx, key, existing); getErr != nil {
					return fmt.Errorf("re-read %T %s after create race: %w", desired, desired.GetName(), getErr)
				}
				return r.patchChild(ctx, existing, desired)
			}
			return fmt.Errorf("create %T %s: %w", desired, desired.GetName(), createErr)
		}
		return nil
	}

	return r.patchChild(ctx, existing, desired)
}

func (r *DevServerReconciler) patchChild(ctx context.Context, existing, desired client.Object) error {
	patch := client.MergeFrom(existing.DeepCopyObject().(client.Object))
	applyDesiredState(existing, desired)
	if err := r.Patch(ctx, existing, patch); err != nil {
		return fmt.Errorf("patch %T %s: %w", existing, existing.GetName(), err)
	}
	return nil
}

// applyDesiredState copies the mutable fields of desired onto existing,
// preserving existing's resourceVersion and other server-managed metadata.
func applyDesiredState(existing, desired client.Object) {
	switch e := existing.(type) {
	case *appsv1.Deployment:
		d := desired.(*appsv1.Deployment)
		e.Spec = d.Spec
		e.Labels = d.Labels
		e.OwnerReferences = d.OwnerReferences
	case *corev1.Service:
		d := desired.(*corev1.Service)
		clusterIP := e.Spec.ClusterIP // immutable once assigned
		e.Spec = d.Spec
		e.Spec.ClusterIP = clusterIP
		e.Labels = d.Labels
		e.OwnerReferences = d.OwnerReferences
	case *corev1.ConfigMap:
		d := desired.(*corev1.ConfigMap)
		e.Data = d.Data
		e.Labels = d.Labels
		e.OwnerReferences = d.OwnerReferences
	case *corev1.PersistentVolumeClaim:
		d := desired.(*corev1.PersistentVolumeClaim)
		// PVC spec is largely immutable after creation; only reconcile the
		// owner reference and labels, matching spec.md's invariant that the
		// PVC predates the pod without being rewritten every reconcile.
		e.Labels = d.Labels
		e.OwnerReferences = d.OwnerReferences
	}
}

// SetupWithManager wires the reconciler into the manager.
func (r *DevServerReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&devserverv1.DevServer{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.PersistentVolumeClaim{}).
		Owns(&corev1.ConfigMap{}).
		WithOptions(ctrlOptions(r.Config.WorkerLimit)).
		Named("devserver").
		Complete(r)
}
