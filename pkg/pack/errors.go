// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pack

import (
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotStrategised is returned by Execute when Strategise did not complete
	ErrNotStrategised = errors.Base("strategise must complete before execute")
	// ErrExcludeAfterStrategise is returned when exclude globs arrive too late
	ErrExcludeAfterStrategise = errors.Base("exclude must be called before strategise")
)

// 🛑 AbortedError is returned when a pack stops at a safe point, either
// because Abort was called or because the transfer backend failed
type AbortedError struct {
	Reason string
	// Err is the backend failure, if that is what stopped the pack
	Err error
}

func (e *AbortedError) Error() string {
	if e.Reason == "" {
		return "pack aborted"
	}
	return "pack aborted: " + e.Reason
}

func (e *AbortedError) Unwrap() error {
	return e.Err
}
