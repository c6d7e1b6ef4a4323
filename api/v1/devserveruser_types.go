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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EDIT THIS FILE!  THIS IS SCAFFOLDING FOR YOU TO OWN!
// NOTE: json tags are required.  Any new fields you add must have json tags for the fields to be serialized.

// DevServerUserSpec defines the desired state of DevServerUser
type DevServerUserSpec struct {
	// Username is a DNS-1123-safe label identifying the user. Callers
	// (e.g. the CLI) are responsible for enforcing DNS-1123 safety before
	// creating the resource.
	// +required
	Username string `json:"username"`
}

// DevServerUser phases.
const (
	DevServerUserPhasePending = "Pending"
	DevServerUserPhaseReady   = "Ready"
	DevServerUserPhaseFailed  = "Failed"
)

// DevServerUserConditionNamespaceReady is set once the user's namespace,
// service account, role, and role binding have all been reconciled.
const DevServerUserConditionNamespaceReady = "NamespaceReady"

// DevServerUserStatus defines the observed state of DevServerUser.
type DevServerUserStatus struct {
	// Phase is one of Pending, Ready, Failed.
	// +optional
	// +kubebuilder:validation:Enum=Pending;Ready;Failed
	Phase string `json:"phase,omitempty"`

	// Namespace is the per-user namespace ("dev-<username>") provisioned
	// for this user. Immutable once set.
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// Message carries human-readable detail.
	// +optional
	Message string `json:"message,omitempty"`

	// conditions represent the current state of the DevServerUser resource.
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster
// +kubebuilder:printcolumn:name="Username",type=string,JSONPath=`.spec.username`
// +kubebuilder:printcolumn:name="Namespace",type=string,JSONPath=`.status.namespace`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`

// DevServerUser is the Schema for the devserverusers API
type DevServerUser struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	// spec defines the desired state of DevServerUser
	// +required
	Spec DevServerUserSpec `json:"spec"`

	// status defines the observed state of DevServerUser
	// +optional
	Status DevServerUserStatus `json:"status,omitempty,omitzero"`
}

// +kubebuilder:object:root=true

// DevServerUserList contains a list of DevServerUser
type DevServerUserList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DevServerUser `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DevServerUser{}, &DevServerUserList{})
}
