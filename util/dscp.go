package util

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// TosExpedited is DSCP EF (46) shifted into the TOS byte.
const TosExpedited = 0xb8

// MarkLowLatency asks the network to treat datagrams on conn as interactive traffic.
// Only IPv4 sockets are marked; other sockets are left untouched and no error is returned.
func MarkLowLatency(conn *net.UDPConn) error {
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil && !addr.IP.IsUnspecified() {
		return nil
	}

	if err := ipv4.NewConn(conn).SetTOS(TosExpedited); err != nil {
		return fmt.Errorf("could not set TOS on %s: %w", addr, err)
	}
	return nil
}
