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

// freeRegenerationLimits maps a book's page count to its free-regeneration
// quota. Page counts outside the table get no free regenerations.
var freeRegenerationLimits = map[int]int{
	12: 3,
	16: 4,
	24: 5,
}

// FreeRegenerationLimit returns the free-regeneration quota for a page count.
func FreeRegenerationLimit(pageCount int) int {
	return freeRegenerationLimits[pageCount]
}

// RemainingRegenerations computes how many free regenerations are left. The
// result is never negative.
func RemainingRegenerations(pageCount, used int) int {
	remaining := FreeRegenerationLimit(pageCount) - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasExceededRegenerationLimit reports whether the next regeneration should
// be billed. Purely advisory; the server owns the actual accounting.
func HasExceededRegenerationLimit(pageCount, used int) bool {
	return RemainingRegenerations(pageCount, used) == 0
}
