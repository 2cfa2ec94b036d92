package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckClientIP(t *testing.T) {
	tests := []struct {
		name         string
		ip           string
		allowPrivate bool
		want         bool
	}{
		{name: "public ipv4", ip: "203.0.113.7", want: true},
		{name: "public ipv6", ip: "2001:db8::1", want: true},
		{name: "empty", ip: "", want: false},
		{name: "garbage", ip: "not-an-ip", want: false},
		{name: "multiple hops", ip: "203.0.113.7, 10.0.0.1", want: false},
		{name: "multiple hops without space", ip: "203.0.113.7,198.51.100.2", want: false},
		{name: "loopback", ip: "127.0.0.1", want: false},
		{name: "ipv6 loopback", ip: "::1", want: false},
		{name: "private", ip: "192.168.1.10", want: false},
		{name: "private 10/8", ip: "10.1.2.3", want: false},
		{name: "link local", ip: "169.254.1.1", want: false},
		{name: "mapped private", ip: "::ffff:10.0.0.1", want: false},
		{name: "unspecified", ip: "0.0.0.0", want: false},
		{name: "private allowed", ip: "192.168.1.10", allowPrivate: true, want: true},
		{name: "loopback allowed", ip: "127.0.0.1", allowPrivate: true, want: true},
		{name: "multi hop never allowed", ip: "10.0.0.1,10.0.0.2", allowPrivate: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckClientIP(tt.ip, tt.allowPrivate))
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/payments/verify", nil)
	r.RemoteAddr = "198.51.100.4:51234"
	assert.Equal(t, "198.51.100.4", ClientIP(r))

	r.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7, 10.0.0.1", ClientIP(r))
}
