package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DefaultCountryCode != "+91" {
		t.Errorf("expected default country code +91, got %s", cfg.DefaultCountryCode)
	}
	if cfg.MediaFetchTimeout != 30*time.Second {
		t.Errorf("expected 30s media fetch timeout, got %s", cfg.MediaFetchTimeout)
	}
	if cfg.GradingFallbackGrade != "Grade B" || cfg.GradingFallbackScore != 75 {
		t.Errorf("unexpected grading fallback: %s/%d", cfg.GradingFallbackGrade, cfg.GradingFallbackScore)
	}
	if !cfg.WebhookDedup {
		t.Error("expected webhook dedup enabled by default")
	}
}

func TestLoadTwilioAccounts(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID_1", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN_1", "tok1")
	t.Setenv("TWILIO_WHATSAPP_NUMBER_1", "whatsapp:+14155238886")
	t.Setenv("TWILIO_ACCOUNT_SID_3", "AC3")
	t.Setenv("TWILIO_AUTH_TOKEN_3", "tok3")
	t.Setenv("TWILIO_WHATSAPP_NUMBER", "whatsapp:+14155550000")

	cfg := Load()
	if len(cfg.TwilioAccounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(cfg.TwilioAccounts))
	}
	if cfg.TwilioAccounts[0].AccountSID != "AC1" || cfg.TwilioAccounts[1].AccountSID != "AC3" {
		t.Errorf("unexpected account order: %+v", cfg.TwilioAccounts)
	}
	if cfg.TwilioAccounts[1].WhatsAppNumber != "whatsapp:+14155550000" {
		t.Errorf("expected shared from-number fallback, got %s", cfg.TwilioAccounts[1].WhatsAppNumber)
	}
}

func TestLoadTwilioPrimaryFallback(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "ACP")
	t.Setenv("TWILIO_AUTH_TOKEN", "tokp")

	cfg := Load()
	if len(cfg.TwilioAccounts) != 1 || cfg.TwilioAccounts[0].AccountSID != "ACP" {
		t.Fatalf("expected primary account fallback, got %+v", cfg.TwilioAccounts)
	}
}
