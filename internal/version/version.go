/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version exposes the build version, set with
// -ldflags "-X gostoryboard/internal/version.Version=...".
package version

import "runtime"

// Version is the release tag of this build.
var Version = "dev"

// String returns the version with the Go toolchain it was built with.
func String() string {
	return "gostoryboard " + Version + " (" + runtime.Version() + ")"
}
