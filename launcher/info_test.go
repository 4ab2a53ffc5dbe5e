package launcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInfo() *Info {
	return &Info{
		Role:        RoleClient,
		HostAddr:    "10.0.0.7",
		Port:        DefaultPort,
		TickRate:    DefaultTickRate,
		PeerTimeout: DefaultPeerTimeout,
		ViewerAddr:  DefaultViewerAddr,
	}
}

func TestNewInfoFromFlagsDefaults(t *testing.T) {
	info, err := NewInfoFromFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, "", info.Role)
	assert.Equal(t, uint(DefaultPort), info.Port)
	assert.Equal(t, uint(DefaultTickRate), info.TickRate)
	assert.Equal(t, DefaultPeerTimeout, info.PeerTimeout)
	assert.Equal(t, DefaultViewerAddr, info.ViewerAddr)
	assert.Equal(t, 0, info.LogLevel)
}

func TestNewInfoFromFlags(t *testing.T) {
	info, err := NewInfoFromFlags([]string{
		"-role", "Client",
		"-host-addr", "192.168.1.20",
		"-port", "6000",
		"-tick-rate", "30",
		"-peer-timeout", "0",
		"-viewer-addr", "",
		"-capture-path", "session.cap",
		"-log-level", "-1",
	})
	require.NoError(t, err)

	assert.Equal(t, RoleClient, info.Role)
	assert.Equal(t, "192.168.1.20", info.HostAddr)
	assert.Equal(t, uint(6000), info.Port)
	assert.Equal(t, uint(30), info.TickRate)
	assert.Equal(t, time.Duration(0), info.PeerTimeout)
	assert.Equal(t, "", info.ViewerAddr)
	assert.Equal(t, "session.cap", info.CapturePath)
	assert.Equal(t, -1, info.LogLevel)
	assert.NoError(t, info.Validate())
}

func TestNewInfoFromFlagsUnknownFlag(t *testing.T) {
	_, err := NewInfoFromFlags([]string{"-game-id", "1"})
	assert.Error(t, err)
}

func TestEnvironmentDefaults(t *testing.T) {
	t.Setenv("SHADOWSWAP_ROLE", "host")
	t.Setenv("SHADOWSWAP_PORT", "7000")
	t.Setenv("SHADOWSWAP_PEER_TIMEOUT", "2s")

	info, err := NewInfoFromFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, RoleHost, info.Role)
	assert.Equal(t, uint(7000), info.Port)
	assert.Equal(t, 2*time.Second, info.PeerTimeout)

	// Flags still win over the environment.
	info, err = NewInfoFromFlags([]string{"-port", "7001"})
	require.NoError(t, err)
	assert.Equal(t, uint(7001), info.Port)
}

func TestEnvironmentDefaultsInvalid(t *testing.T) {
	t.Setenv("SHADOWSWAP_TICK_RATE", "fast")

	_, err := NewInfoFromFlags(nil)
	require.ErrorIs(t, err, ErrInvalidEnvironment)
	assert.Contains(t, err.Error(), "SHADOWSWAP_TICK_RATE")

	// Flag errors are reported by the flag set itself and stay apart.
	t.Setenv("SHADOWSWAP_TICK_RATE", "")
	_, err = NewInfoFromFlags([]string{"-no-such-flag"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidEnvironment)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHADOWSWAP_HOST_ADDR=10.1.1.1\n"), 0644))
	t.Setenv("SHADOWSWAP_HOST_ADDR", "")
	require.NoError(t, os.Unsetenv("SHADOWSWAP_HOST_ADDR"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "10.1.1.1", os.Getenv("SHADOWSWAP_HOST_ADDR"))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validInfo().Validate())

	cases := map[string]func(i *Info){
		"role":         func(i *Info) { i.Role = "spectator" },
		"host-addr":    func(i *Info) { i.HostAddr = "" },
		"port":         func(i *Info) { i.Port = 70000 },
		"tick-rate":    func(i *Info) { i.TickRate = 0 },
		"peer-timeout": func(i *Info) { i.PeerTimeout = -time.Second },
		"viewer-addr":  func(i *Info) { i.ViewerAddr = "localhost" },
	}
	for flagName, mutate := range cases {
		info := validInfo()
		mutate(info)
		err := info.Validate()
		if assert.Error(t, err, flagName) {
			assert.Contains(t, err.Error(), "--"+flagName)
		}
	}

	host := validInfo()
	host.Role = RoleHost
	host.HostAddr = ""
	assert.NoError(t, host.Validate())
}

func TestAddresses(t *testing.T) {
	info := validInfo()
	assert.Equal(t, ":5555", info.ListenAddress())
	assert.Equal(t, "10.0.0.7:5555", info.PeerAddress())

	info.HostAddr = "10.0.0.7:6000"
	assert.Equal(t, "10.0.0.7:6000", info.PeerAddress())
}

func TestPromptRole(t *testing.T) {
	var out bytes.Buffer
	info := &Info{}
	require.NoError(t, info.PromptRole(context.Background(), strings.NewReader("host\n"), &out))
	assert.Equal(t, RoleHost, info.Role)

	info = &Info{}
	require.NoError(t, info.PromptRole(context.Background(), strings.NewReader("c\n10.0.0.9\n"), &out))
	assert.Equal(t, RoleClient, info.Role)
	assert.Equal(t, "10.0.0.9", info.HostAddr)

	info = &Info{}
	err := info.PromptRole(context.Background(), strings.NewReader("referee\n"), &out)
	assert.Error(t, err)
}
