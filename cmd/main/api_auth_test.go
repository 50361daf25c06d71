package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateScopes(t *testing.T) {
	tests := []struct {
		name    string
		scopes  []string
		wantErr bool
	}{
		{"empty", nil, false},
		{"single", []string{"pages:read"}, false},
		{"master", []string{"*"}, false},
		{"full catalog", []string{
			"pages:read", "pages:write", "templates:read", "templates:write",
			"settings:read", "settings:write", "auth:manage", "server:config", "server:control",
		}, false},
		{"unknown", []string{"pages:admin"}, true},
		{"mixed", []string{"pages:read", "nonsense"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateScopes(tt.scopes)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateScopes(%v) error = %v, wantErr %v", tt.scopes, err, tt.wantErr)
			}
		})
	}
}

func TestHasScope(t *testing.T) {
	newRequest := func(scopes ...string) *http.Request {
		set := make(map[string]struct{}, len(scopes))
		for _, s := range scopes {
			set[s] = struct{}{}
		}
		r := httptest.NewRequest("GET", "/api/pages", nil)
		ctx := context.WithValue(r.Context(), contextKeyPermissions, &Permissions{ScopeSet: set})
		return r.WithContext(ctx)
	}

	if !hasScope(newRequest("pages:read"), "pages:read") {
		t.Error("exact scope should grant access")
	}
	if hasScope(newRequest("pages:read"), "pages:write") {
		t.Error("a read scope must not grant write")
	}
	if !hasScope(newRequest("*"), "settings:write") {
		t.Error("master scope should grant everything")
	}
	if hasScope(httptest.NewRequest("GET", "/api/pages", nil), "pages:read") {
		t.Error("no permissions in context must deny")
	}
}

func TestGenerateAPIKeyShape(t *testing.T) {
	key, err := generateAPIKey()
	if err != nil {
		t.Fatalf("generateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, "fcms_") {
		t.Errorf("key %q missing fcms_ prefix", key)
	}
	if len(key) != len("fcms_")+64 {
		t.Errorf("key length = %d, want 32 hex-encoded bytes after the prefix", len(key))
	}
	if hashAPIKey(key) == hashAPIKey(key+"x") {
		t.Error("distinct keys must hash differently")
	}
}
