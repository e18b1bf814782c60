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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pettales/petpay"
	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/internal/notification"
	"github.com/pettales/petpay/model"
	"github.com/spf13/cobra"
)

// promptSaver is the CLI's interactive save surface. An empty path or EOF is
// treated as the user dismissing the dialog.
type promptSaver struct{}

func (s *promptSaver) Save(ctx context.Context, filename string, body io.Reader) error {
	fmt.Printf("Save as [%s] (empty to cancel): ", filename)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return petpay.ErrSaveCancelled
	}
	target := strings.TrimSpace(line)
	if target == "" {
		return petpay.ErrSaveCancelled
	}

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return err
	}
	return out.Close()
}

// promptCharitySelector resolves the charity choice a gated download may
// require by asking on stdin.
type promptCharitySelector struct{}

func (s *promptCharitySelector) SelectCharity(ctx context.Context, message string) (string, error) {
	if message != "" {
		fmt.Println(message)
	}
	fmt.Print("Charity id (empty to cancel): ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", petpay.ErrSelectionCancelled
	}
	charityID := strings.TrimSpace(line)
	if charityID == "" {
		return "", petpay.ErrSelectionCancelled
	}
	return charityID, nil
}

func downloadCommands(b *petpayInstance) *cobra.Command {
	var title string
	var charityID string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "download <book-id>",
		Short: "Download a book PDF, running checkout or charity selection if required",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			negotiation, err := b.client.DownloadArtifact(cmd.Context(), args[0], petpay.DownloadOptions{
				SessionID: sessionID,
				CharityID: charityID,
				Title:     title,
			})
			if err != nil {
				if apierror.IsUserInitiated(err) {
					fmt.Println("Download cancelled.")
					return nil
				}
				notification.NotifyError(err)
				return err
			}

			switch negotiation.Kind {
			case model.NegotiationBinary:
				fmt.Printf("Saved %s\n", negotiation.Filename)
			case model.NegotiationPaymentRequired:
				fmt.Printf("This download needs payment. Complete checkout at:\n\n    %s\n\nthen run the download again.\n", negotiation.CheckoutURL)
			case model.NegotiationCharityRequired:
				fmt.Println("A charity selection is required before downloading. Re-run with --charity.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title used for the saved filename")
	cmd.Flags().StringVar(&charityID, "charity", "", "Charity id, when already chosen")
	cmd.Flags().StringVar(&sessionID, "session", "", "Guest checkout session id")
	return cmd
}
