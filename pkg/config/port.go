package config

import (
	"fmt"
	"net"
	"time"
)

// CheckPortIsAvailable probes 127.0.0.1:<port>; a successful connection
// means something is already listening there.
func CheckPortIsAvailable(port uint16) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err == nil {
		conn.Close()
		return &UnavailablePortError{Port: port}
	}
	return nil
}
