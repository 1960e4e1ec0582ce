package utils

import (
	"net/http/httptest"
	"testing"
)

func TestHostOnly(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "127.0.0.1:8080", want: "127.0.0.1"},
		{in: "[::1]:7777", want: "::1"},
		{in: "::1", want: "::1"},
		{in: " 10.0.0.1 ", want: "10.0.0.1"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := HostOnly(tt.in); got != tt.want {
				t.Errorf("HostOnly(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		realIP     string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "headers ignored without trust", remote: "192.0.2.1:1234", xff: "203.0.113.9", want: "192.0.2.1"},
		{name: "first forwarded address", remote: "127.0.0.1:1", xff: "203.0.113.9, 10.0.0.1", trustProxy: true, want: "203.0.113.9"},
		{name: "real ip fallback", remote: "127.0.0.1:1", realIP: "203.0.113.7", trustProxy: true, want: "203.0.113.7"},
		{name: "no headers with trust", remote: "127.0.0.1:1", trustProxy: true, want: "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m, invalid := NewIPMatcher([]string{"127.0.0.1/32", "::1", "10.1.0.0/16", "not-an-ip", " "})
	if len(invalid) != 1 || invalid[0] != "not-an-ip" {
		t.Errorf("invalid = %v, want [not-an-ip]", invalid)
	}
	if m.IsEmpty() {
		t.Fatal("IsEmpty() = true, want false")
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "127.0.0.1", want: true},
		{ip: "::1", want: true},
		{ip: "::ffff:127.0.0.1", want: true},
		{ip: "10.1.200.3", want: true},
		{ip: "10.2.0.1", want: false},
		{ip: "garbage", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := m.Allow(tt.ip); got != tt.want {
				t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}

	if empty, _ := NewIPMatcher(nil); !empty.IsEmpty() {
		t.Error("NewIPMatcher(nil).IsEmpty() = false, want true")
	}
}
