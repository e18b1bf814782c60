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
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pettales/petpay/config"
	"github.com/pettales/petpay/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalOnlyCache(t *testing.T) {
	config.MockConfig(&config.Configuration{
		ProjectName: "PetPay Test",
		API:         config.APIConfig{BaseURL: "https://api.pettales.test"},
	})

	ca, err := NewCache()
	require.NoError(t, err)

	balance := &model.Balance{Amount: 420, LastRefreshedAt: time.Now()}
	err = ca.Set(context.Background(), "petpay:balance", balance, time.Minute)
	require.NoError(t, err)

	var got model.Balance
	err = ca.Get(context.Background(), "petpay:balance", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(420), got.Amount)

	err = ca.Delete(context.Background(), "petpay:balance")
	require.NoError(t, err)
}

func TestCacheMissLeavesTargetUntouched(t *testing.T) {
	config.MockConfig(&config.Configuration{
		ProjectName: "PetPay Test",
		API:         config.APIConfig{BaseURL: "https://api.pettales.test"},
	})

	ca, err := NewCache()
	require.NoError(t, err)

	var got model.Balance
	err = ca.Get(context.Background(), "petpay:missing", &got)
	require.NoError(t, err)
	assert.True(t, got.LastRefreshedAt.IsZero())
}

func TestRedisTierWithMiniredis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	config.MockConfig(&config.Configuration{
		ProjectName: "PetPay Test",
		API:         config.APIConfig{BaseURL: "https://api.pettales.test"},
		Redis:       config.RedisConfig{Dns: mr.Addr()},
	})

	ca, err := NewCache()
	require.NoError(t, err)

	balance := &model.Balance{Amount: 99, LastRefreshedAt: time.Now()}
	err = ca.Set(context.Background(), "petpay:balance", balance, time.Minute)
	require.NoError(t, err)

	// The write reached the redis tier, not just the local one.
	assert.Contains(t, mr.Keys(), "petpay:balance")

	var got model.Balance
	err = ca.Get(context.Background(), "petpay:balance", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.Amount)
}
