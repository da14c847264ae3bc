package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func setEnvWithCleanup(t *testing.T, key, value string) {
	t.Helper()
	previous, existed := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if existed {
			os.Setenv(key, previous)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	previous, existed := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if existed {
			os.Setenv(key, previous)
		}
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "COMMISSION_BPS")
	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "TIP_EVENT_EXCHANGE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CommissionBps != 500 {
		t.Fatalf("expected default commission of 500 bps, got %d", cfg.CommissionBps)
	}
	if cfg.ServerPort != "5000" {
		t.Fatalf("expected default port 5000, got %q", cfg.ServerPort)
	}
	if cfg.TipEventExchange != "tippay.events" {
		t.Fatalf("expected default exchange tippay.events, got %q", cfg.TipEventExchange)
	}
}

func TestLoadConfig_UsesRazorpayAliases(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "GATEWAY_KEY_ID")
	unsetEnvWithCleanup(t, "GATEWAY_WEBHOOK_SECRET")
	setEnvWithCleanup(t, "RAZORPAY_KEY_ID", "rzp_test_alias")
	setEnvWithCleanup(t, "RAZORPAY_WEBHOOK_SECRET", "whsec_alias")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GatewayKeyID != "rzp_test_alias" {
		t.Fatalf("expected key id from alias env var, got %q", cfg.GatewayKeyID)
	}
	if cfg.GatewayWebhookSecret != "whsec_alias" {
		t.Fatalf("expected webhook secret from alias env var, got %q", cfg.GatewayWebhookSecret)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "5000")
	setEnvWithCleanup(t, "PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9999" {
		t.Fatalf("expected PORT to take precedence, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_CapsCommission(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "COMMISSION_BPS", "25000")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CommissionBps != 10000 {
		t.Fatalf("expected commission capped at 10000 bps, got %d", cfg.CommissionBps)
	}
}
