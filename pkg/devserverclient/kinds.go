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

package devserverclient

import (
	"sigs.k8s.io/controller-runtime/pkg/client"

	devserverv1 "github.com/devserver-io/devserver-operator/api/v1"
)

// NewDevServerClient builds the generic Client for the DevServer kind.
func NewDevServerClient(wc client.WithWatch, namespace string) *Client[*devserverv1.DevServer] {
	return New(
		wc, namespace,
		func() *devserverv1.DevServer { return &devserverv1.DevServer{} },
		func() client.ObjectList { return &devserverv1.DevServerList{} },
		func(l client.ObjectList) []*devserverv1.DevServer {
			items := l.(*devserverv1.DevServerList).Items
			out := make([]*devserverv1.DevServer, len(items))
			for i := range items {
				out[i] = &items[i]
			}
			return out
		},
	)
}

// NewDevServerFlavorClient builds the generic Client for the cluster-scoped
// DevServerFlavor kind.
func NewDevServerFlavorClient(wc client.WithWatch) *Client[*devserverv1.DevServerFlavor] {
	return New(
		wc, "",
		func() *devserverv1.DevServerFlavor { return &devserverv1.DevServerFlavor{} },
		func() client.ObjectList { return &devserverv1.DevServerFlavorList{} },
		func(l client.ObjectList) []*devserverv1.DevServerFlavor {
			items := l.(*devserverv1.DevServerFlavorList).Items
			out := make([]*devserverv1.DevServerFlavor, len(items))
			for i := range items {
				out[i] = &items[i]
			}
			return out
		},
	)
}

// NewDevServerUserClient builds the generic Client for the cluster-scoped
// DevServerUser kind.
func NewDevServerUserClient(wc client.WithWatch) *Client[*devserverv1.DevServerUser] {
	return New(
		wc, "",
		func() *devserverv1.DevServerUser { return &devserverv1.DevServerUser{} },
		func() client.ObjectList { return &devserverv1.DevServerUserList{} },
		func(l client.ObjectList) []*devserverv1.DevServerUser {
			items := l.(*devserverv1.DevServerUserList).Items
			out := make([]*devserverv1.DevServerUser, len(items))
			for i := range items {
				out[i] = &items[i]
			}
			return out
		},
	)
}
