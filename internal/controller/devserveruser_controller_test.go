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

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

var _ = Describe("DevServerUser Controller", func() {
	const timeout = time.Second * 10
	const interval = time.Millisecond * 250

	Context("When a DevServerUser is created", func() {
		It("provisions a namespace, service account, role and role binding", func() {
			user := &devserverv1.DevServerUser{
				ObjectMeta: metav1.ObjectMeta{Name: "dana"},
				Spec:       devserverv1.DevServerUserSpec{Username: "dana"},
			}
			Expect(k8sClient.Create(ctx, user)).To(Succeed())

			created := &devserverv1.DevServerUser{}
			Eventually(func() string {
				if err := k8sClient.Get(ctx, types.NamespacedName{Name: "dana"}, created); err != nil {
					return ""
				}
				return created.Status.Phase
			}, timeout, interval).Should(Equal(devserverv1.DevServerUserPhaseReady))
			Expect(created.Status.Namespace).To(Equal("dev-dana"))

			ns := &corev1.Namespace{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "dev-dana"}, ns)).To(Succeed())

			sa := &corev1.ServiceAccount{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "dana-sa", Namespace: "dev-dana"}, sa)).To(Succeed())

			role := &rbacv1.Role{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "devserver-user", Namespace: "dev-dana"}, role)).To(Succeed())

			binding := &rbacv1.RoleBinding{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "devserver-user", Namespace: "dev-dana"}, binding)).To(Succeed())
			Expect(binding.Subjects).To(HaveLen(2))
		})
	})
})
