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

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/pettales/petpay"
	"github.com/pettales/petpay/config"
	"github.com/pettales/petpay/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// PetPayCLI represents the CLI application, encapsulating the root Cobra command.
type PetPayCLI struct {
	cmd *cobra.Command
}

// petpayInstance holds the client instance and its configuration for use by
// the subcommands.
type petpayInstance struct {
	client *petpay.PetPay
	cnf    *config.Configuration
}

// envCredential reads the session token from the environment. An empty token
// means no authenticated user.
type envCredential struct{}

func (envCredential) Credential(_ context.Context) (string, error) {
	return os.Getenv("PETPAY_SESSION_TOKEN"), nil
}

// printNavigator is the CLI's checkout-redirect primitive: it prints the
// checkout URL for the user to open, since a terminal cannot navigate a
// browsing context itself.
type printNavigator struct{}

func (printNavigator) Redirect(_ context.Context, url string) error {
	fmt.Printf("Complete your purchase at:\n\n    %s\n\n", url)
	return nil
}

// recoverPanic handles any panics during execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the PetPay client before any
// subcommand executes.
func preRun(app *petpayInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		client, err := setupPetPay()
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.client = client
		app.cnf = cnf

		return nil
	}
}

// setupPetPay creates the PetPay client with the CLI's collaborators wired in.
func setupPetPay() (*petpay.PetPay, error) {
	client, err := petpay.NewPetPay(envCredential{})
	if err != nil {
		return nil, fmt.Errorf("error creating petpay client: %v", err)
	}
	client.SetNavigator(printNavigator{})
	client.SetCharitySelector(&promptCharitySelector{})
	client.SetArtifactSaver(&promptSaver{})
	return client, nil
}

// NewCLI creates the command-line interface for the PetPay client.
func NewCLI() *PetPayCLI {
	var configFile string
	b := &petpayInstance{}

	var rootCmd = &cobra.Command{
		Use:   "petpay",
		Short: "PetTales credits and delivery client",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./petpay.json", "Configuration file for the petpay client")

	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(balanceCommands(b))
	rootCmd.AddCommand(packagesCommands(b))
	rootCmd.AddCommand(buyCommands(b))
	rootCmd.AddCommand(verifyCommands(b))
	rootCmd.AddCommand(downloadCommands(b))
	rootCmd.AddCommand(uploadCommands(b))

	return &PetPayCLI{cmd: rootCmd}
}

// executeCLI runs the root command of the CLI application.
func (w *PetPayCLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()
	cli := NewCLI()
	cli.executeCLI()
}
