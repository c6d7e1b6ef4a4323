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

// Package resources contains the pure functions that turn a DevServer
// declaration plus its Flavor into the desired child Kubernetes objects:
// no clock, no randomness, no cluster I/O (host-key material is generated
// and stored separately by internal/hostkeys and only referenced here).
package resources

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

// Defaults carries operator-wide settings threaded into the builders, drawn
// from internal/config.OperatorConfig.
type Defaults struct {
	DefaultDevServerImage     string
	StaticDependenciesImage   string
	DefaultPersistentHomeSize resource.Quantity
}

// Inputs is everything Build needs to produce one DevServer's child set.
type Inputs struct {
	Name      string
	Namespace string
	Spec      devserverv1.DevServerSpec
	Flavor    *devserverv1.DevServerFlavor
	Defaults  Defaults
}

// Built is the desired child set for one DevServer. PVC and Service are
// nil when not applicable (no persistentHome, or SSH exposeService off).
type Built struct {
	ConfigMap  *corev1.ConfigMap
	PVC        *corev1.PersistentVolumeClaim
	Deployment *appsv1.Deployment
	Service    *corev1.Service
}

func labels(name string) map[string]string {
	return map[string]string{"app": name}
}

// homePVCName is the auto-provisioned PVC name for the legacy
// spec.persistentHome path.
func homePVCName(devServerName string) string {
	return devServerName + "-home"
}

// Build produces the desired child objects for a DevServer. It is a pure
// function of its inputs, as spec.md §8's round-trip law requires; calling
// it twice with identical Inputs yields byte-identical objects.
func Build(in Inputs) *Built {
	specVolumes := in.Spec.Volumes
	var pvc *corev1.PersistentVolumeClaim
	if in.Spec.PersistentHome != nil && in.Spec.PersistentHome.Enabled {
		size := in.Spec.PersistentHome.Size
		if size.IsZero() {
			size = in.Defaults.DefaultPersistentHomeSize
		}
		pvc = buildHomePVC(in.Name, in.Namespace, size)
		// The synthesized entry goes first so a spec.volumes entry at
		// HomeMountPath overrides it in the merge (later entries win).
		specVolumes = append([]devserverv1.VolumeMount{{
			ClaimName: homePVCName(in.Name),
			MountPath: HomeMountPath,
		}}, specVolumes...)
	}

	configMap := buildConfigMap(in.Name, in.Namespace)
	deployment := buildDeployment(in, specVolumes, configMap.Name)

	var svc *corev1.Service
	if in.Spec.SSH.ExposeService {
		svc = buildService(in.Name, in.Namespace)
	}

	return &Built{ConfigMap: configMap, PVC: pvc, Deployment: deployment, Service: svc}
}

func buildHomePVC(name, namespace string, size resource.Quantity) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      homePVCName(name),
			Namespace: namespace,
			Labels:    labels(name),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: size},
			},
		},
	}
}

// buildConfigMap carries the startup.sh, user_login.sh and sshd_config
// assets as opaque text blobs, per spec.md §4.2. Their contents are part of
// the out-of-scope DevServer container image contract; the operator only
// guarantees the keys and mount points the image expects.
func buildConfigMap(name, namespace string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name + "-config",
			Namespace: namespace,
			Labels:    labels(name),
		},
		Data: map[string]string{
			"startup.sh": `#!/bin/sh
set -e
mkdir -p /home/dev/.ssh
echo "$SSH_PUBLIC_KEY" > /home/dev/.ssh/authorized_keys
chmod 700 /home/dev/.ssh
chmod 600 /home/dev/.ssh/authorized_keys
exec /opt/bin/sshd -D -f /opt/ssh/sshd_config
`,
			"user_login.sh": `#!/bin/sh
exec /bin/sh -l
`,
			"sshd_config": `Port 22
HostKey /opt/ssh/hostkeys/ssh_host_ed25519_key
HostKey /opt/ssh/hostkeys/ssh_host_rsa_key
HostKey /opt/ssh/hostkeys/ssh_host_ecdsa_key
PasswordAuthentication no
PubkeyAuthentication yes
ForceCommand /devserver-login/user_login.sh
`,
		},
	}
}

func buildService(name, namespace string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name + "-ssh",
			Namespace: namespace,
			Labels:    labels(name),
		},
		Spec: corev1.ServiceSpec{
			Selector: labels(name),
			Type:     corev1.ServiceTypeClusterIP,
			Ports: []corev1.ServicePort{
				{Name: "ssh", Port: 22, TargetPort: intstr.FromInt(22), Protocol: corev1.ProtocolTCP},
			},
		},
	}
}

func buildDeployment(in Inputs, specVolumes []devserverv1.VolumeMount, configMapName string) *appsv1.Deployment {
	name := in.Name
	replicas := int32(1)
	podLabels := labels(name)

	image := in.Spec.Image
	if image == "" {
		image = in.Defaults.DefaultDevServerImage
	}

	var resources corev1.ResourceRequirements
	var nodeSelector map[string]string
	var tolerations []corev1.Toleration
	if in.Flavor != nil {
		resources = corev1.ResourceRequirements{
			Requests: in.Flavor.Spec.Resources.Requests,
			Limits:   in.Flavor.Spec.Resources.Limits,
		}
		nodeSelector = in.Flavor.Spec.NodeSelector
		tolerations = in.Flavor.Spec.Tolerations
	}

	merged := mergeVolumes(nil, specVolumes)
	volumes, mounts := podVolumesAndMounts(merged)

	volumes = append(volumes,
		corev1.Volume{
			Name: "bin",
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{},
			},
		},
		corev1.Volume{
			Name: "devserver-config",
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: configMapName},
					DefaultMode:          int32Ptr(0755),
				},
			},
		},
		corev1.Volume{
			Name: "host-keys",
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{
					SecretName:  name + "-host-keys",
					DefaultMode: int32Ptr(0600),
				},
			},
		},
	)

	mounts = append(mounts,
		corev1.VolumeMount{Name: "bin", MountPath: "/opt/bin"},
		corev1.VolumeMount{Name: "devserver-config", MountPath: "/devserver/startup.sh", SubPath: "startup.sh"},
		corev1.VolumeMount{Name: "devserver-config", MountPath: "/opt/ssh/sshd_config", SubPath: "sshd_config"},
		corev1.VolumeMount{Name: "devserver-config", MountPath: "/devserver-login/user_login.sh", SubPath: "user_login.sh"},
		corev1.VolumeMount{Name: "host-keys", MountPath: "/opt/ssh/hostkeys", ReadOnly: true},
	)

	initContainers := []corev1.Container{
		{
			Name:    "static-deps",
			Image:   in.Defaults.StaticDependenciesImage,
			Command: []string{"/bin/sh", "-c"},
			Args: []string{
				"cp /static/sshd /static/scp /static/sftp-server /static/ssh-keygen /static/doas /opt/bin/ && " +
					"chmod +x /opt/bin/sshd /opt/bin/scp /opt/bin/sftp-server /opt/bin/ssh-keygen && " +
					"chmod u+s /opt/bin/doas",
			},
			VolumeMounts: []corev1.VolumeMount{{Name: "bin", MountPath: "/opt/bin"}},
		},
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: in.Namespace,
			Labels:    podLabels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Selector: &metav1.LabelSelector{MatchLabels: podLabels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					InitContainers: initContainers,
					Containers: []corev1.Container{
						{
							Name:         "devserver",
							Image:        image,
							Command:      []string{"/devserver/startup.sh"},
							Resources:    resources,
							VolumeMounts: mounts,
							Ports: []corev1.ContainerPort{
								{Name: "ssh", ContainerPort: 22},
							},
							Env: []corev1.EnvVar{
								{Name: "SSH_PUBLIC_KEY", Value: in.Spec.SSH.PublicKey},
							},
						},
					},
					Volumes:      volumes,
					NodeSelector: nodeSelector,
					Tolerations:  tolerations,
				},
			},
		},
	}
}

// podVolumesAndMounts turns the merged volume list into pod-level Volumes
// plus the container's user-facing VolumeMounts.
func podVolumesAndMounts(merged []mountedVolume) ([]corev1.Volume, []corev1.VolumeMount) {
	volumes := make([]corev1.Volume, 0, len(merged))
	mounts := make([]corev1.VolumeMount, 0, len(merged))

	for _, v := range merged {
		if v.ClaimName == "" {
			volumes = append(volumes, corev1.Volume{
				Name:         v.Name,
				VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
			})
		} else {
			volumes = append(volumes, corev1.Volume{
				Name: v.Name,
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: v.ClaimName,
						ReadOnly:  v.ReadOnly,
					},
				},
			})
		}
		mounts = append(mounts, corev1.VolumeMount{
			Name:      v.Name,
			MountPath: v.MountPath,
			ReadOnly:  v.ReadOnly,
		})
	}
	return volumes, mounts
}

func int32Ptr(v int32) *int32 { return &v }
