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

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
	"github.com/devserver-io/devserver-operator/internal/config"
	"github.com/devserver-io/devserver-operator/pkg/metrics"
)

// DevServerUserReconciler provisions a per-user namespace, ServiceAccount,
// Role and RoleBinding for each DevServerUser (C7).
type DevServerUserReconciler struct {
	client.Client
	Scheme *runtime.Scheme
	Config config.OperatorConfig
}

// +kubebuilder:rbac:groups=devserver.io,resources=devserverusers,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=devserver.io,resources=devserverusers/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=namespaces,verbs=get;list;watch;create
// +kubebuilder:rbac:groups="",resources=serviceaccounts,verbs=get;list;watch;create;update;patch
// +kubebuilder:rbac:groups=rbac.authorization.k8s.io,resources=roles;rolebindings,verbs=get;list;watch;create;update;patch

func (r *DevServerUserReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)
	start := time.Now()
	outcome := "success"
	defer func() { metrics.RecordReconcile("devserveruser", outcome, time.Since(start).Seconds()) }()

	user := &devserverv1.DevServerUser{}
	if err := r.Get(ctx, req.NamespacedName, user); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		outcome = "error"
		return ctrl.Result{}, err
	}

	statusPatch := client.MergeFrom(user.DeepCopy())
	ns := user.Status.Namespace
	if ns == "" {
		ns = "dev-" + user.Spec.Username
	}
	sa := user.Spec.Username + "-sa"

	if err := r.ensureNamespace(ctx, ns); err != nil {
		outcome = "failed"
		return r.failUser(ctx, user, statusPatch, err)
	}
	if err := r.ensureServiceAccount(ctx, user, ns, sa); err != nil {
		outcome = "failed"
		return r.failUser(ctx, user, statusPatch, err)
	}
	roleName := "devserver-user"
	if err := r.ensureRole(ctx, user, ns, roleName); err != nil {
		outcome = "failed"
		return r.failUser(ctx, user, statusPatch, err)
	}
	if err := r.ensureRoleBinding(ctx, user, ns, roleName, sa); err != nil {
		outcome = "failed"
		return r.failUser(ctx, user, statusPatch, err)
	}

	meta.SetStatusCondition(&user.Status.Conditions, metav1.Condition{
		Type: devserverv1.DevServerUserConditionNamespaceReady, Status: metav1.ConditionTrue, Reason: "Provisioned",
	})
	user.Status.Phase = devserverv1.DevServerUserPhaseReady
	user.Status.Namespace = ns
	user.Status.Message = fmt.Sprintf("namespace %s provisioned", ns)

	if err := r.Status().Patch(ctx, user, statusPatch); err != nil {
		log.Error(err, "failed to patch DevServerUser status")
		outcome = "error"
		return ctrl.Result{}, err
	}

	log.Info("DevServerUser reconciled", "user", user.Spec.Username, "namespace", ns)
	return ctrl.Result{}, nil
}

func (r *DevServerUserReconciler) failUser(ctx context.Context, user *devserverv1.DevServerUser, statusPatch client.Patch, err error) (ctrl.Result, error) {
	log := logf.FromContext(ctx)
	user.Status.Phase = devserverv1.DevServerUserPhaseFailed
	user.Status.Message = err.Error()
	if patchErr := r.Status().Patch(ctx, user, statusPatch); patchErr != nil {
		log.Error(patchErr, "failed to patch DevServerUser status to Failed")
		return ctrl.Result{}, patchErr
	}
	log.Error(err, "failed to provision DevServerUser, will retry", "user", user.Spec.Username)
	return ctrl.Result{}, err
}

// ensureNamespace creates ns if absent. Not every cluster accepts a
// Namespace owned by a cluster-scoped object such as DevServerUser, so per
// spec.md §4.6 this one is left un-owned: deleting the DevServerUser does
// not cascade-delete its namespace.
func (r *DevServerUserReconciler) ensureNamespace(ctx context.Context, ns string) error {
	existing := &corev1.Namespace{}
	err := r.Get(ctx, types.NamespacedName{Name: ns}, existing)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("get namespace %s: %w", ns, err)
	}
	namespace := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: ns}}
	if createErr := r.Create(ctx, namespace); createErr != nil && !apierrors.IsAlreadyExists(createErr) {
		return fmt.Errorf("create namespace %s: %w", ns, createErr)
	}
	return nil
}

func (r *DevServerUserReconciler) ensureServiceAccount(ctx context.Context, owner client.Object, ns, name string) error {
	sa := &corev1.ServiceAccount{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns}}
	if err := controllerutil.SetControllerReference(owner, sa, r.Scheme); err != nil {
		return fmt.Errorf("set owner reference on service account %s: %w", name, err)
	}

	existing := &corev1.ServiceAccount{}
	err := r.Get(ctx, types.NamespacedName{Name: name, Namespace: ns}, existing)
	if apierrors.IsNotFound(err) {
		if createErr := r.Create(ctx, sa); createErr != nil && !apierrors.IsAlreadyExists(createErr) {
			return fmt.Errorf("create service account %s: %w", name, createErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get service account %s: %w", name, err)
	}
	return nil
}

func (r *DevServerUserReconciler) ensureRole(ctx context.Context, owner client.Object, ns, name string) error {
	role := &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{"devserver.io"},
				Resources: []string{"devservers", "devserverflavors", "devserverusers"},
				Verbs:     []string{"create", "list", "get", "watch", "delete"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"pods", "pods/exec", "pods/log"},
				Verbs:     []string{"get", "list", "watch", "create"},
			},
		},
	}
	if err := controllerutil.SetControllerReference(owner, role, r.Scheme); err != nil {
		return fmt.Errorf("set owner reference on role %s: %w", name, err)
	}

	existing := &rbacv1.Role{}
	err := r.Get(ctx, types.NamespacedName{Name: name, Namespace: ns}, existing)
	if apierrors.IsNotFound(err) {
		if createErr := r.Create(ctx, role); createErr != nil && !apierrors.IsAlreadyExists(createErr) {
			return fmt.Errorf("create role %s: %w", name, createErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get role %s: %w", name, err)
	}
	patch := client.MergeFrom(existing.DeepCopy())
	existing.Rules = role.Rules
	if err := r.Patch(ctx, existing, patch); err != nil {
		return fmt.Errorf("patch role %s: %w", name, err)
	}
	return nil
}

func (r *DevServerUserReconciler) ensureRoleBinding(ctx context.Context, owner client.Object, ns, roleName, saName string) error {
	user := owner.(*devserverv1.DevServerUser)
	binding := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: roleName, Namespace: ns},
		RoleRef:    rbacv1.RoleRef{APIGroup: rbacv1.GroupName, Kind: "Role", Name: roleName},
		Subjects: []rbacv1.Subject{
			{Kind: rbacv1.UserKind, APIGroup: rbacv1.GroupName, Name: user.Spec.Username},
			{Kind: rbacv1.ServiceAccountKind, Name: saName, Namespace: ns},
		},
	}
	if err := controllerutil.SetControllerReference(owner, binding, r.Scheme); err != nil {
		return fmt.Errorf("set owner reference on role binding %s: %w", roleName, err)
	}

	existing := &rbacv1.RoleBinding{}
	err := r.Get(ctx, types.NamespacedName{Name: roleName, Namespace: ns}, existing)
	if apierrors.IsNotFound(err) {
		if createErr := r.Create(ctx, binding); createErr != nil && !apierrors.IsAlreadyExists(createErr) {
			return fmt.Errorf("create role binding %s: %w", roleName, createErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get role binding %s: %w", roleName, err)
	}
	patch := client.MergeFrom(existing.DeepCopy())
	existing.Subjects = binding.Subjects
	existing.RoleRef = binding.RoleRef
	if err := r.Patch(ctx, existing, patch); err != nil {
		return fmt.Errorf("patch role binding %s: %w", roleName, err)
	}
	return nil
}

// SetupWithManager wires the reconciler into the manager.
func (r *DevServerUserReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&devserverv1.DevServerUser{}).
		Owns(&corev1.ServiceAccount{}).
		Owns(&rbacv1.Role{}).
		Owns(&rbacv1.RoleBinding{}).
		WithOptions(ctrlOptions(r.Config.WorkerLimit)).
		Named("devserveruser").
		Complete(r)
}
