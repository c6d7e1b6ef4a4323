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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

const testPublicKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIBo+Yjj5wgJRF1HHUo0ctrM5bNWjfLWgJ2nZjQ1eSp7j test@example"

func newFlavor(name string, annotations map[string]string) *devserverv1.DevServerFlavor {
	return &devserverv1.DevServerFlavor{
		ObjectMeta: metav1.ObjectMeta{Name: name, Annotations: annotations},
		Spec:       devserverv1.DevServerFlavorSpec{},
	}
}

var _ = Describe("DevServer Controller", func() {
	const timeout = time.Second * 10
	const interval = time.Millisecond * 250

	Context("When a DevServer references a valid Flavor", func() {
		It("builds its child set and reaches phase Running", func() {
			flavor := newFlavor("small", nil)
			Expect(k8sClient.Create(ctx, flavor)).To(Succeed())

			ds := &devserverv1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "alice-box", Namespace: "default"},
				Spec: devserverv1.DevServerSpec{
					Flavor: "small",
					SSH:    devserverv1.SSHConfig{PublicKey: testPublicKey},
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			created := &devserverv1.DevServer{}
			Eventually(func() string {
				if err := k8sClient.Get(ctx, types.NamespacedName{Name: "alice-box", Namespace: "default"}, created); err != nil {
					return ""
				}
				return created.Status.Phase
			}, timeout, interval).Should(Equal(devserverv1.DevServerPhaseRunning))

			deployment := &appsv1.Deployment{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "alice-box", Namespace: "default"}, deployment)).To(Succeed())
			Expect(deployment.OwnerReferences).To(HaveLen(1))
			Expect(deployment.OwnerReferences[0].Name).To(Equal("alice-box"))

			// A second reconcile (triggered by a label change on the
			// DevServer) must keep reconciling the same Deployment identity
			// rather than replacing it.
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "alice-box", Namespace: "default"}, created)).To(Succeed())
			created.Labels = map[string]string{"touch": "1"}
			Expect(k8sClient.Update(ctx, created)).To(Succeed())

			Eventually(func() string {
				if err := k8sClient.Get(ctx, types.NamespacedName{Name: "alice-box", Namespace: "default"}, deployment); err != nil {
					return ""
				}
				return string(deployment.UID)
			}, timeout, interval).Should(Equal(string(deployment.UID)))
		})
	})

	Context("When a DevServer references an unknown Flavor", func() {
		It("sets phase Failed and does not create a Deployment", func() {
			ds := &devserverv1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "bob-box", Namespace: "default"},
				Spec: devserverv1.DevServerSpec{
					Flavor: "does-not-exist",
					SSH:    devserverv1.SSHConfig{PublicKey: testPublicKey},
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			created := &devserverv1.DevServer{}
			Eventually(func() string {
				if err := k8sClient.Get(ctx, types.NamespacedName{Name: "bob-box", Namespace: "default"}, created); err != nil {
					return ""
				}
				return created.Status.Phase
			}, timeout, interval).Should(Equal(devserverv1.DevServerPhaseFailed))

			deployment := &appsv1.Deployment{}
			err := k8sClient.Get(ctx, types.NamespacedName{Name: "bob-box", Namespace: "default"}, deployment)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("When a DevServer declares duplicate mount paths", func() {
		It("sets phase Failed with a message naming the duplicate", func() {
			flavor := newFlavor("dup-flavor", nil)
			Expect(k8sClient.Create(ctx, flavor)).To(Succeed())

			ds := &devserverv1.DevServer{
				ObjectMeta: metav1.ObjectMeta{Name: "carol-box", Namespace: "default"},
				Spec: devserverv1.DevServerSpec{
					Flavor: "dup-flavor",
					SSH:    devserverv1.SSHConfig{PublicKey: testPublicKey},
					Volumes: []devserverv1.VolumeMount{
						{ClaimName: "a", MountPath: "/data"},
						{ClaimName: "b", MountPath: "/data"},
					},
				},
			}
			Expect(k8sClient.Create(ctx, ds)).To(Succeed())

			created := &devserverv1.DevServer{}
			Eventually(func() string {
				if err := k8sClient.Get(ctx, types.NamespacedName{Name: "carol-box", Namespace: "default"}, created); err != nil {
					return ""
				}
				return created.Status.Phase
			}, timeout, interval).Should(Equal(devserverv1.DevServerPhaseFailed))
			Expect(created.Status.Message).To(ContainSubstring("/data"))
		})
	})
})
