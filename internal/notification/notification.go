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

package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/pettales/petpay/config"
	"github.com/pettales/petpay/internal/apierror"
	"github.com/pettales/petpay/request"
	"github.com/sirupsen/logrus"
)

// WebhookNotification posts an error payload to the configured webhook so
// operators see client-side failures.
//
// The function fetches the webhook URL from configuration, serializes the
// error with a timestamp, and fires a single POST. Delivery failures are
// logged and dropped; the sink never propagates its own errors.
func WebhookNotification(severity string, notifyErr error) {
	conf, err := config.Fetch()
	if err != nil {
		log.Println(err)
		return
	}

	data := map[string]interface{}{
		"severity": severity,
		"error":    notifyErr.Error(),
		"time":     time.Now().Format(time.RFC822),
	}
	payload, err := request.ToJsonReq(&data)
	if err != nil {
		log.Println(err)
		return
	}

	req, err := http.NewRequest("POST", conf.Notification.Webhook.Url, payload)
	if err != nil {
		log.Println(err)
		return
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	var response map[string]interface{}
	_, err = request.Call(req, &response)
	if err != nil {
		log.Println(err)
	}
}

// NotifyError reports a failure through the notification sink. It logs the
// error locally and posts to the webhook when one is configured.
//
// User-initiated cancellations are logged at debug level only; a deliberate
// abort is not a failure the user needs to be warned about.
//
// This function runs the notification process asynchronously using a goroutine to avoid blocking.
func NotifyError(systemError error) {
	if apierror.IsUserInitiated(systemError) {
		logrus.Debug(systemError)
		return
	}
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			log.Println(err)
			return
		}

		if conf.Notification.Webhook.Url != "" {
			WebhookNotification("error", systemError)
		}
	}(systemError)
}

// NotifyWarning reports a partial-success state, such as an upload that
// landed in storage but could not be committed to the owning record.
func NotifyWarning(warning error) {
	go func(warning error) {
		logrus.Warn(warning)

		conf, err := config.Fetch()
		if err != nil {
			log.Println(err)
			return
		}

		if conf.Notification.Webhook.Url != "" {
			WebhookNotification("warning", warning)
		}
	}(warning)
}
