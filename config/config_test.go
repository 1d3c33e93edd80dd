package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PERSISTENCE", "JWT_ACCESS_TTL", "RESET_PASSWORD_WITHIN", "REMEMBER_FOR", "MAIL_SEND_ENABLED", "RABBITMQ_MAIL_QUEUE"} {
		t.Setenv(k, "")
	}
	c := Load()

	if c.AppName != "fixture-users" || c.Persistence != "postgres" || c.MemoryStore() {
		t.Fatalf("defaults = %+v", c)
	}
	if c.AccessTTL != time.Hour || c.ResetPasswordWithin != 6*time.Hour || c.RememberFor != 14*24*time.Hour {
		t.Fatalf("durations = %v / %v / %v", c.AccessTTL, c.ResetPasswordWithin, c.RememberFor)
	}
	if !c.MailSendEnabled || c.RabbitMQMailQueue != "mails" {
		t.Fatalf("mail defaults = %v / %q", c.MailSendEnabled, c.RabbitMQMailQueue)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PERSISTENCE", "Memory")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("RESET_PASSWORD_WITHIN", "soon")

	c := Load()
	if !c.MemoryStore() {
		t.Fatalf("Persistence = %q", c.Persistence)
	}
	if c.AccessTTL != 15*time.Minute || c.RedisDB != 3 || !c.CookieSecure {
		t.Fatalf("overrides = %v / %d / %v", c.AccessTTL, c.RedisDB, c.CookieSecure)
	}
	if c.DBMaxConns != 10 || c.ResetPasswordWithin != 6*time.Hour {
		t.Fatalf("invalid values should fall back: %d / %v", c.DBMaxConns, c.ResetPasswordWithin)
	}
}

func TestValidate(t *testing.T) {
	dev := &Config{Env: "development", Persistence: "memory", JWTAccessSecret: "devaccesssecret"}
	if err := dev.Validate(); err != nil {
		t.Fatalf("development defaults rejected: %v", err)
	}

	prod := &Config{
		Env:              "production",
		Persistence:      "postgres",
		JWTAccessSecret:  "devaccesssecret",
		JWTRefreshSecret: "r3fr3sh",
		ResetTokenSecret: "devresettokensecret",
	}
	err := prod.Validate()
	if err == nil {
		t.Fatal("production with dev secrets accepted")
	}
	for _, key := range []string{"JWT_ACCESS_SECRET", "RESET_TOKEN_SECRET"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("missing %s in %v", key, err)
		}
	}
	if strings.Contains(err.Error(), "JWT_REFRESH_SECRET") {
		t.Errorf("overridden secret reported: %v", err)
	}

	if err := (&Config{Persistence: "sqlite"}).Validate(); err == nil {
		t.Fatal("unknown persistence accepted")
	}
}

func TestListsAndDSN(t *testing.T) {
	c := &Config{
		CORSAllowedOrigins: " http://a.test, ,http://b.test ",
		DBUser:             "u",
		DBPassword:         "p",
		DBHost:             "h",
		DBPort:             "5432",
		DBName:             "d",
		DBSSLMode:          "disable",
	}
	if got := c.CORSOrigins(); !reflect.DeepEqual(got, []string{"http://a.test", "http://b.test"}) {
		t.Fatalf("CORSOrigins = %v", got)
	}
	if got := c.ESAddrs(); len(got) != 0 {
		t.Fatalf("ESAddrs = %v", got)
	}
	if got := c.PostgresDSN(); got != "postgres://u:p@h:5432/d?sslmode=disable" {
		t.Fatalf("PostgresDSN = %q", got)
	}
}
