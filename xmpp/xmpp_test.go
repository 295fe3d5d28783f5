package xmpp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSendWithoutConfig(t *testing.T) {
	x := Xmpp{Config: Config{Jid: "committee@example.org"}}

	require.False(t, x.Configured())
	require.True(t, errors.Is(x.Send("Race finished"), ErrMissingConfig))
}

func TestServerName(t *testing.T) {
	tests := []struct {
		jid  string
		want string
	}{
		{"committee@example.org", "example.org"},
		{"committee@example.org/race", "example.org/race"},
		{"example.org", "example.org"},
	}
	for _, tt := range tests {
		if got := serverName(tt.jid); got != tt.want {
			t.Errorf("serverName(%q) = %q; want %q", tt.jid, got, tt.want)
		}
	}
}

func TestOptionsDefaultHost(t *testing.T) {
	x := Xmpp{Config: Config{Jid: "committee@example.org", Password: "secret", To: "skipper@example.org"}}
	require.True(t, x.Configured())
	require.Equal(t, "example.org", x.options().Host)

	x.Config.Host = "xmpp.example.org:5222"
	require.Equal(t, "xmpp.example.org:5222", x.options().Host)
}
