package validation

import (
	"fmt"
	"net"
	"strconv"
)

// ValidHostPort checks that hostAndPort is a host:port pair
// with a port in the range 0..65535.
func ValidHostPort(hostAndPort string) error {
	_, port, err := net.SplitHostPort(hostAndPort)
	if err != nil {
		return err
	}
	if _, err = strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
