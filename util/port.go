package util

import (
	"fmt"
	"net"
)

// GetFreeUdpPort binds an ephemeral loopback UDP port, releases it and returns its number.
// Another process may grab the port in between, so it is only meant for tests and local setups.
func GetFreeUdpPort() (uint, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return 0, fmt.Errorf("listen on ephemeral udp port: %w", err)
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.Port == 0 {
		return 0, fmt.Errorf("could not resolve a port (got %v)", conn.LocalAddr())
	}
	return uint(addr.Port), nil
}
