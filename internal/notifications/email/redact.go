package email

import "strings"

// redactAddress keeps the first character of the local part and the domain:
// "observer@example.com" logs as "o***@example.com". Anything without an "@"
// is masked entirely.
func redactAddress(addr string) string {
	if addr == "" {
		return ""
	}
	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

func redactAddresses(addrs []string) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = redactAddress(a)
	}
	return out
}
