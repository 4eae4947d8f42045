package session

import (
	"net"
	"strings"
)

// KeySource carries every request attribute that can identify a session.
type KeySource struct {
	UserID       string
	ChatID       string
	AnonToken    string
	ForwardedFor string
	RemoteAddr   string
}

// DeriveKey picks the canonical session key: authenticated user, chat id,
// anonymous token, then caller address.
func DeriveKey(src KeySource) string {
	if v := strings.TrimSpace(src.UserID); v != "" {
		return "user:" + v
	}
	if v := strings.TrimSpace(src.ChatID); v != "" {
		return "chat:" + v
	}
	if v := strings.TrimSpace(src.AnonToken); v != "" {
		return "anon:" + v
	}
	if ip := ClientIP(src.ForwardedFor, src.RemoteAddr); ip != "" {
		return "ip:" + ip
	}
	return "anonymous"
}

// ClientIP returns the first X-Forwarded-For hop, else the host part of remoteAddr.
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
