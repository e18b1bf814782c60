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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_MAX_PURCHASE     = 100000
	DEFAULT_PRICE_PER_CREDIT = "0.05"
)

var ConfigStore atomic.Value

type APIConfig struct {
	BaseURL string `json:"base_url" envconfig:"PETPAY_API_BASE_URL"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"PETPAY_REDIS_DNS"`
}

type CreditConfig struct {
	// MaxPurchaseAmount is the ceiling the UI layer enforces on a single
	// purchase; the orchestrator re-checks it before any network call.
	MaxPurchaseAmount int64  `json:"max_purchase_amount" envconfig:"PETPAY_CREDIT_MAX_PURCHASE"`
	PricePerCredit    string `json:"price_per_credit" envconfig:"PETPAY_CREDIT_PRICE"`
}

type DownloadConfig struct {
	Dir string `json:"dir" envconfig:"PETPAY_DOWNLOAD_DIR"`
}

type Notification struct {
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName      string         `json:"project_name" envconfig:"PETPAY_PROJECT_NAME"`
	API              APIConfig      `json:"api"`
	Redis            RedisConfig    `json:"redis"`
	Credit           CreditConfig   `json:"credit"`
	Download         DownloadConfig `json:"download"`
	Notification     Notification   `json:"notification"`
	DisableDebugLogs bool           `json:"disable_debug_logs" envconfig:"PETPAY_DISABLE_DEBUG_LOGS"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("petpay", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	err := loadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	// Log verbosity is decided once at startup, never mutated afterwards.
	cnf, _ := Fetch()
	if cnf.DisableDebugLogs {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called petpay.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "PetPay Client"
	}

	if cnf.API.BaseURL == "" {
		log.Println("Error: API base URL is empty. It's a required field.")
		return errors.New("api base url is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.API.BaseURL = strings.TrimSuffix(strings.TrimSpace(cnf.API.BaseURL), "/")
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Credit.MaxPurchaseAmount <= 0 {
		cnf.Credit.MaxPurchaseAmount = DEFAULT_MAX_PURCHASE
	}

	if cnf.Credit.PricePerCredit == "" {
		cnf.Credit.PricePerCredit = DEFAULT_PRICE_PER_CREDIT
	}

	if cnf.Download.Dir == "" {
		cnf.Download.Dir = "."
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	err := mockConfig.validateAndAddDefaults()
	if err != nil {
		log.Println(err)
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
