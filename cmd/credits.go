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
	"fmt"
	"strconv"

	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/internal/notification"
	"github.com/pettales/petpay/model"
	"github.com/spf13/cobra"
)

func balanceCommands(b *petpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Refresh and show the credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := b.client.RefreshBalance(cmd.Context())
			if err != nil {
				notification.NotifyError(err)
				return err
			}
			fmt.Printf("Balance: %d credits (as of %s)\n", balance.Amount, balance.LastRefreshedAt.Format("15:04:05"))
			return nil
		},
	}
	return cmd
}

func packagesCommands(b *petpayInstance) *cobra.Command {
	var required int64

	cmd := &cobra.Command{
		Use:   "packages",
		Short: "List purchasable credit packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := b.client.CachedBalance(cmd.Context())
			if err != nil {
				notification.NotifyError(err)
				return err
			}
			packages, err := b.client.Packages(required, balance.Amount)
			if err != nil {
				return err
			}
			for _, pkg := range packages {
				printPackage(pkg)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&required, "required", 0, "Credits needed by a pending action; adds an exact shortfall package")
	return cmd
}

func printPackage(pkg model.CreditPackage) {
	label := ""
	if pkg.IsShortfall {
		label = "  (covers your shortfall)"
	} else if pkg.Popular {
		label = "  (popular)"
	}
	fmt.Printf("%6d credits  $%s%s\n", pkg.Credits, pkg.Price.StringFixed(2), label)
}

func buyCommands(b *petpayInstance) *cobra.Command {
	var purchaseContext string

	cmd := &cobra.Command{
		Use:   "buy <credit-amount>",
		Short: "Create a checkout session for a credit purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid credit amount %q", args[0])
			}
			session, err := b.client.BeginCheckout(cmd.Context(), amount, purchaseContext)
			if err != nil {
				notification.NotifyError(err)
				return err
			}
			fmt.Printf("Session %s created for %d credits.\n", session.SessionID, session.CreditAmount)
			fmt.Println("Run 'petpay verify' with the session id after completing checkout.")
			return nil
		},
	}
	cmd.Flags().StringVar(&purchaseContext, "context", "cli", "Purchase context forwarded to the backend")
	return cmd
}

func verifyCommands(b *petpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <session-id>",
		Short: "Confirm a completed checkout session and credit the balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := b.client.VerifyPurchase(cmd.Context(), args[0])
			if err != nil {
				if !apierror.IsUserInitiated(err) {
					notification.NotifyError(err)
				}
				return err
			}
			switch outcome.Status {
			case model.VerificationVerified:
				fmt.Printf("Purchase verified: +%d credits, new balance %d.\n", outcome.CreditsAdded, outcome.NewBalance)
			case model.VerificationPending:
				fmt.Println("Verification already in progress for this session.")
			default:
				fmt.Println("Verification failed; you can retry.")
			}
			return nil
		},
	}
	return cmd
}
