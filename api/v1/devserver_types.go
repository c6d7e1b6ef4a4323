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
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// EDIT THIS FILE!  THIS IS SCAFFOLDING FOR YOU TO OWN!
// NOTE: json tags are required.  Any new fields you add must have json tags for the fields to be serialized.

// DevServerSpec defines the desired state of DevServer
type DevServerSpec struct {
	// Flavor references a DevServerFlavor resource that defines compute resources
	// +required
	Flavor string `json:"flavor"`

	// Image overrides the operator's configured default container image
	// +optional
	Image string `json:"image,omitempty"`

	// SSH carries the SSH access configuration for this DevServer
	// +required
	SSH SSHConfig `json:"ssh"`

	// Lifecycle defines lifetime/expiration settings
	// +optional
	Lifecycle *LifecycleConfig `json:"lifecycle,omitempty"`

	// Volumes lists storage to mount into the DevServer pod, keyed by mount path.
	// Preferred over the deprecated PersistentHome field.
	// +optional
	// +listType=atomic
	Volumes []VolumeMount `json:"volumes,omitempty"`

	// PersistentHome is a deprecated alternative to Volumes that auto-provisions
	// a home directory PVC. If both it and a Volumes entry target /home/dev,
	// Volumes wins (see internal/resources volume merge rule).
	//
	// Deprecated: prefer an explicit entry in Volumes mounted at /home/dev.
	// +optional
	PersistentHome *PersistentHomeConfig `json:"persistentHome,omitempty"`
}

// SSHConfig carries SSH access settings for a DevServer.
type SSHConfig struct {
	// PublicKey is the authorised key seeded into the pod's authorized_keys
	// +required
	PublicKey string `json:"publicKey"`

	// ExposeService opts into a ClusterIP Service exposing port 22. By
	// default access is port-forward only.
	// +optional
	ExposeService bool `json:"exposeService,omitempty"`
}

// LifecycleConfig defines lifetime management settings for a DevServer.
type LifecycleConfig struct {
	// TimeToLive is a duration string (e.g. "4h", "30m", "2s"). Must be
	// greater than zero and no more than 7 days. Absence means the
	// DevServer is never automatically expired.
	// +optional
	TimeToLive string `json:"timeToLive,omitempty"`
}

// VolumeMount describes one storage mount requested by a DevServer.
type VolumeMount struct {
	// ClaimName is the name of an existing PersistentVolumeClaim in the
	// DevServer's namespace.
	// +required
	ClaimName string `json:"claimName"`

	// MountPath is where the volume is mounted in the container. Must be
	// unique across all entries in Volumes.
	// +required
	MountPath string `json:"mountPath"`

	// ReadOnly mounts the volume read-only. Defaults to false.
	// +optional
	ReadOnly bool `json:"readOnly,omitempty"`
}

// PersistentHomeConfig is the legacy auto-provisioned home volume option.
type PersistentHomeConfig struct {
	// Enabled turns on the auto-provisioned home PVC.
	// +optional
	Enabled bool `json:"enabled,omitempty"`

	// Size is the requested capacity of the auto-provisioned PVC.
	// +optional
	// +kubebuilder:default="10Gi"
	Size resource.Quantity `json:"size,omitempty"`
}

// DevServer phases.
const (
	DevServerPhasePending = "Pending"
	DevServerPhaseRunning = "Running"
	DevServerPhaseFailed  = "Failed"
)

// Condition types set on DevServer.status.conditions.
const (
	DevServerConditionReady          = "Ready"
	DevServerConditionFlavorResolved = "FlavorResolved"
	DevServerConditionHostKeysReady  = "HostKeysReady"
	DevServerConditionWorkloadReady  = "WorkloadReady"
)

// DevServerStatus defines the observed state of DevServer.
type DevServerStatus struct {
	// Phase is one of Pending, Running, Failed. Advisory: once the spec is
	// fixed, the next successful reconcile moves a Failed DevServer to
	// Running. The reconciler itself never writes Pending.
	// +optional
	// +kubebuilder:validation:Enum=Pending;Running;Failed
	Phase string `json:"phase,omitempty"`

	// Message carries human-readable detail, capped at 1KiB.
	// +optional
	Message string `json:"message,omitempty"`

	// conditions represent the current state of the DevServer resource.
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Flavor",type=string,JSONPath=`.spec.flavor`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DevServer is the Schema for the devservers API
type DevServer struct {
	metav1.TypeMeta `json:",inline"`

	// metadata is a standard object metadata
	// +optional
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	// spec defines the desired state of DevServer
	// +required
	Spec DevServerSpec `json:"spec"`

	// status defines the observed state of DevServer
	// +optional
	Status DevServerStatus `json:"status,omitempty,omitzero"`
}

// +kubebuilder:object:root=true

// DevServerList contains a list of DevServer
type DevServerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DevServer `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DevServer{}, &DevServerList{})
}
