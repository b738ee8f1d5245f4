// Copyright 2023-2026 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package modsettings

import (
	"math/rand/v2"
	"time"
)

// addJitter scales period by a random factor in [1-jitter, 1+jitter]. The
// generator of math/rand/v2 cannot be reseeded by other packages and is safe
// for concurrent use.
func addJitter(period time.Duration, jitter float64) time.Duration {
	factor := (rand.Float64()*2 - 1) * jitter //nolint:gosec // no need for a secure RNG
	period = time.Duration(float64(period) * (factor + 1))
	if period <= 0 {
		period = 1 // ticker.Reset panics if duration is not positive
	}
	return period
}
