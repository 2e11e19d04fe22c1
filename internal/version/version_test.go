package version

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if ua != "yamcs-ws/"+Version {
		t.Errorf("UserAgent() = %q, want %q", ua, "yamcs-ws/"+Version)
	}
	if strings.ContainsAny(ua, " \t") {
		t.Errorf("UserAgent() = %q contains whitespace", ua)
	}
}

func TestString(t *testing.T) {
	if !strings.HasPrefix(String(), Version+" (") {
		t.Errorf("String() = %q, want version prefix", String())
	}
}
