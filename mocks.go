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

import "context"

// StaticCredential is a CredentialProvider backed by a fixed token, useful
// for tests and for hosts that manage their own session lifecycle.
type StaticCredential string

func (s StaticCredential) Credential(_ context.Context) (string, error) {
	return string(s), nil
}
