package gateway

import (
	"fmt"

	"tuitionhub_backend/internals/configs"
)

// FromConfig builds the gateway selected by PAYMENT_GATEWAY.
func FromConfig(cfg configs.BillingConfig) (Gateway, error) {
	switch cfg.Gateway {
	case "razorpay":
		return NewRazorpay(RazorpayConfig{
			KeyID:         cfg.RazorpayKeyID,
			KeySecret:     cfg.RazorpayKeySecret,
			WebhookSecret: cfg.RazorpayWebhookSecret,
			BaseURL:       cfg.RazorpayBaseURL,
			Timeout:       cfg.GatewayTimeout,
		}), nil
	case "midtrans":
		return NewMidtrans(MidtransConfig{
			ServerKey:     cfg.MidtransServerKey,
			ClientKey:     cfg.MidtransClientKey,
			UseProduction: cfg.MidtransUseProd,
			Timeout:       cfg.GatewayTimeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown gateway %q", cfg.Gateway)
}
