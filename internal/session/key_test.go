package session

import "testing"

func TestDeriveKeyPriority(t *testing.T) {
	tests := []struct {
		name string
		src  KeySource
		want string
	}{
		{"user wins", KeySource{UserID: "u1", ChatID: "c1", AnonToken: "a1", RemoteAddr: "10.0.0.1:5000"}, "user:u1"},
		{"chat next", KeySource{ChatID: "c1", AnonToken: "a1"}, "chat:c1"},
		{"anon token", KeySource{AnonToken: "a1", RemoteAddr: "10.0.0.1:5000"}, "anon:a1"},
		{"forwarded ip", KeySource{ForwardedFor: "203.0.113.9, 10.0.0.2", RemoteAddr: "10.0.0.1:5000"}, "ip:203.0.113.9"},
		{"remote addr", KeySource{RemoteAddr: "10.0.0.1:5000"}, "ip:10.0.0.1"},
		{"bare remote", KeySource{RemoteAddr: "10.0.0.1"}, "ip:10.0.0.1"},
		{"nothing", KeySource{}, "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveKey(tt.src); got != tt.want {
				t.Fatalf("DeriveKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
