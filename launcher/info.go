package launcher

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"shadowswap/util"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RoleHost   = "host"
	RoleClient = "client"

	DefaultPort        = 5555
	DefaultTickRate    = 60
	DefaultPeerTimeout = 5 * time.Second
	DefaultViewerAddr  = "127.0.0.1:8555"

	envPrefix = "SHADOWSWAP_"
)

type Info struct {
	Role        string
	HostAddr    string
	Port        uint
	TickRate    uint
	PeerTimeout time.Duration
	ViewerAddr  string
	CapturePath string
	LogLevel    int
	LogPath     string
}

// LoadEnvFile exports the variables of a dotenv file without overriding ones already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not load env file '%s': %w", path, err)
	}
	return nil
}

// NewInfoFromFlags parses args (without the program name). Every flag takes its default from
// the matching SHADOWSWAP_* environment variable when that is set.
func NewInfoFromFlags(args []string) (*Info, error) {
	env := envDefaults{}
	defPort := env.uint("PORT", DefaultPort)
	defTickRate := env.uint("TICK_RATE", DefaultTickRate)
	defPeerTimeout := env.duration("PEER_TIMEOUT", DefaultPeerTimeout)
	defLogLevel := env.int("LOG_LEVEL", 0)
	if env.err != nil {
		return nil, env.err
	}

	flags := flag.NewFlagSet("shadowswap", flag.ContinueOnError)
	role := flags.String(
		"role", env.string("ROLE", ""), "Session role: host or client, prompted for when empty")
	hostAddr := flags.String(
		"host-addr", env.string("HOST_ADDR", ""), "Address of the host to connect to (client only)")
	port := flags.Uint(
		"port", defPort, "UDP port the host listens on and the client connects to")
	tickRate := flags.Uint(
		"tick-rate", defTickRate, "Simulation and network ticks per second")
	peerTimeout := flags.Duration(
		"peer-timeout", defPeerTimeout, "Mark the peer as silent after this long without datagrams, 0 disables")
	viewerAddr := flags.String(
		"viewer-addr", env.string("VIEWER_ADDR", DefaultViewerAddr), "Listen address of the viewer websocket, empty disables")
	capturePath := flags.String(
		"capture-path", env.string("CAPTURE_PATH", ""), "Write a compressed capture of every datagram to this file")
	logLevel := flags.Int(
		"log-level", defLogLevel, "Log level: -1 - Debug, 0 - Info, 1 - Warn, 2 - Error")
	logPath := flags.String(
		"log-path",
		env.string("LOG_PATH", ""),
		"Directory to the logs, otherwise will use working directory and add 'logs' to that path")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	return &Info{
		Role:        strings.ToLower(strings.TrimSpace(*role)),
		HostAddr:    *hostAddr,
		Port:        *port,
		TickRate:    *tickRate,
		PeerTimeout: *peerTimeout,
		ViewerAddr:  *viewerAddr,
		CapturePath: *capturePath,
		LogLevel:    *logLevel,
		LogPath:     *logPath,
	}, nil
}

// PromptRole asks on the terminal whether this process hosts or joins.
func (c *Info) PromptRole(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(util.NewCancelableIoReader(ctx, in))
	answer, err := util.PromptLine(reader, out, "Host or join? [host/client]: ")
	if err != nil {
		return fmt.Errorf("could not read role: %w", err)
	}

	switch strings.ToLower(answer) {
	case "h", RoleHost:
		c.Role = RoleHost
	case "c", "j", "join", RoleClient:
		c.Role = RoleClient
	default:
		return fmt.Errorf("unknown role '%s', expected host or client", answer)
	}

	if c.Role == RoleClient && c.HostAddr == "" {
		answer, err = util.PromptLine(reader, out, "Host address: ")
		if err != nil {
			return fmt.Errorf("could not read host address: %w", err)
		}
		c.HostAddr = answer
	}
	return nil
}

func (c *Info) Validate() error {
	if c.Role != RoleHost && c.Role != RoleClient {
		return fmt.Errorf("--role must be '%s' or '%s', got '%s'", RoleHost, RoleClient, c.Role)
	}

	if c.Role == RoleClient && c.HostAddr == "" {
		return fmt.Errorf("--host-addr is required for the client role")
	}

	if c.Port == 0 || c.Port > 65535 {
		return fmt.Errorf("--port must be between 1 and 65535, got %d", c.Port)
	}

	if c.TickRate == 0 || c.TickRate > 1000 {
		return fmt.Errorf("--tick-rate must be between 1 and 1000, got %d", c.TickRate)
	}

	if c.PeerTimeout < 0 {
		return fmt.Errorf("--peer-timeout cannot be negative")
	}

	if c.ViewerAddr != "" {
		if _, _, err := net.SplitHostPort(c.ViewerAddr); err != nil {
			return fmt.Errorf("--viewer-addr is not a valid listen address: %w", err)
		}
	}

	return nil
}

// ListenAddress is where the host binds.
func (c *Info) ListenAddress() string {
	return net.JoinHostPort("", strconv.Itoa(int(c.Port)))
}

// PeerAddress is where the client sends. A port in HostAddr wins over --port.
func (c *Info) PeerAddress() string {
	if _, _, err := net.SplitHostPort(c.HostAddr); err == nil {
		return c.HostAddr
	}
	return net.JoinHostPort(c.HostAddr, strconv.Itoa(int(c.Port)))
}

// ErrInvalidEnvironment marks a SHADOWSWAP_* variable that could not be parsed.
var ErrInvalidEnvironment = errors.New("invalid environment")

// envDefaults reads SHADOWSWAP_* variables and keeps the first parse error.
type envDefaults struct {
	err error
}

func (e *envDefaults) lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func (e *envDefaults) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s%s: %w", ErrInvalidEnvironment, envPrefix, key, err)
	}
}

func (e *envDefaults) string(key, def string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return def
}

func (e *envDefaults) uint(key string, def uint) uint {
	value, ok := e.lookup(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return uint(parsed)
}

func (e *envDefaults) int(key string, def int) int {
	value, ok := e.lookup(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return parsed
}

func (e *envDefaults) duration(key string, def time.Duration) time.Duration {
	value, ok := e.lookup(key)
	if !ok {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return parsed
}
