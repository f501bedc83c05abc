package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rpattn/billingapi/internal/auth"
	"github.com/rpattn/billingapi/internal/config"
	"github.com/rpattn/billingapi/internal/domain"
)

func TestSchemasCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schemas"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var schemas []map[string]any
	if err := json.Unmarshal(out.Bytes(), &schemas); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(schemas) != len(domain.Descriptors()) {
		t.Fatalf("expected %d schemas, got %d", len(domain.Descriptors()), len(schemas))
	}
}

func TestMigrateCommandRejectsDirection(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate", "sideways"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected invalid direction to be rejected")
	}
}

func TestNewAuthenticator(t *testing.T) {
	a, err := newAuthenticator(config.AuthConfig{Mode: "jwt", JWTSecret: "s"})
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}
	if _, ok := a.(auth.JWTAuthenticator); !ok {
		t.Fatalf("expected JWTAuthenticator, got %T", a)
	}

	a, err = newAuthenticator(config.AuthConfig{Mode: "header", TenantHeader: "X-Tenant-Id", UserHeader: "X-User-Id"})
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h, ok := a.(auth.HeaderAuthenticator); !ok || h.TenantHeader != "X-Tenant-Id" {
		t.Fatalf("unexpected authenticator %#v", a)
	}

	if _, err := newAuthenticator(config.AuthConfig{Mode: "saml"}); err == nil {
		t.Fatal("expected unknown mode to fail")
	}
}
