// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SMSConfig carries the SMS gateway credentials.
type SMSConfig struct {
	APIURL string
	APIKey string
	Sender string
}

// HTTPSMSSender delivers one-time passwords via an external SMS gateway's
// JSON API.
//
// An empty APIURL leaves the sender unconfigured: sends fail with an explicit
// error rather than silently dropping codes, since an undelivered OTP must
// roll back the stored code upstream.
type HTTPSMSSender struct {
	config     SMSConfig
	httpClient *http.Client
}

// NewHTTPSMSSender constructs the sender with a bounded request timeout.
func NewHTTPSMSSender(config SMSConfig) *HTTPSMSSender {
	return &HTTPSMSSender{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendSMSRequest struct {
	Sender  string `json:"sender"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendOTP posts the code to the gateway.
func (sender *HTTPSMSSender) SendOTP(context context.Context, mobile, code string) error {
	if sender.config.APIURL == "" {
		return fmt.Errorf("sms_sender_not_configured")
	}

	payload := sendSMSRequest{
		Sender:  sender.config.Sender,
		To:      mobile,
		Message: fmt.Sprintf("%s is your Zaffran Foods verification code. Valid for 10 minutes.", code),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sms_sender_marshal_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, sender.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms_sender_request_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+sender.config.APIKey)

	response, err := sender.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("sms_sender_send_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 300 {
		// Bounded read keeps a misbehaving gateway from ballooning memory.
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("sms_sender_gateway_rejected: status %d: %s", response.StatusCode, detail)
	}

	return nil
}
