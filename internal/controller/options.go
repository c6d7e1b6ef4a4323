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

import "sigs.k8s.io/controller-runtime/pkg/controller"

// ctrlOptions caps concurrent reconciles at workerLimit (the operator
// config's workerLimit, per SPEC_FULL.md §4.9). A non-positive value falls
// back to controller-runtime's default of one.
func ctrlOptions(workerLimit int) controller.Options {
	if workerLimit <= 0 {
		workerLimit = 1
	}
	return controller.Options{MaxConcurrentReconciles: workerLimit}
}
