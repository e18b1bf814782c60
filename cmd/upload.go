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
	"mime"
	"os"
	"path/filepath"

	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/internal/notification"
	"github.com/pettales/petpay/model"
	"github.com/spf13/cobra"
)

func uploadCommands(b *petpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <image-path>",
		Short: "Upload a user image through the direct storage pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			file := model.UploadFile{
				Name:        filepath.Base(path),
				ContentType: mime.TypeByExtension(filepath.Ext(path)),
				Size:        info.Size(),
				Body:        f,
			}

			finalURL, err := b.client.UploadAvatar(cmd.Context(), file, func(percent float64) {
				fmt.Printf("\rUploading... %3.0f%%", percent)
			})
			fmt.Println()
			if err != nil {
				if apierror.IsUserInitiated(err) {
					fmt.Println("Upload aborted.")
					return nil
				}
				if apierror.CodeOf(err) == apierror.ErrCommitFailedAfterUpload {
					fmt.Println("Upload succeeded but could not be saved to your profile. Try saving again later.")
					return err
				}
				notification.NotifyError(err)
				return err
			}
			fmt.Printf("Uploaded: %s\n", finalURL)
			return nil
		},
	}
	return cmd
}
