/*
Copyright 2025 PetPay Authors.

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
package petpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreeRegenerationLimit(t *testing.T) {
	assert.Equal(t, 3, FreeRegenerationLimit(12))
	assert.Equal(t, 4, FreeRegenerationLimit(16))
	assert.Equal(t, 5, FreeRegenerationLimit(24))
	assert.Equal(t, 0, FreeRegenerationLimit(8))
	assert.Equal(t, 0, FreeRegenerationLimit(0))
	assert.Equal(t, 0, FreeRegenerationLimit(-12))
}

func TestRemainingRegenerations(t *testing.T) {
	assert.Equal(t, 2, RemainingRegenerations(16, 2))
	assert.Equal(t, 0, RemainingRegenerations(16, 10))
	assert.Equal(t, 3, RemainingRegenerations(12, 0))
	assert.Equal(t, 0, RemainingRegenerations(24, 5))

	// Unknown page counts yield no quota regardless of usage.
	assert.Equal(t, 0, RemainingRegenerations(20, 0))
	assert.Equal(t, 0, RemainingRegenerations(20, 100))
}

func TestHasExceededRegenerationLimit(t *testing.T) {
	assert.False(t, HasExceededRegenerationLimit(16, 2))
	assert.True(t, HasExceededRegenerationLimit(16, 4))
	assert.True(t, HasExceededRegenerationLimit(16, 10))
	assert.True(t, HasExceededRegenerationLimit(13, 0))
}
