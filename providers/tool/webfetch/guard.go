package webfetch

import (
	"fmt"
	"net/netip"
	"strings"
	"syscall"
)

var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google":          true,
	"metadata.google.internal": true,
}

// checkHost refuses hostnames that name the local machine or cloud
// metadata services. Literal IPs are checked here too; resolved names are
// checked at dial time by guardDial.
func checkHost(host string) error {
	name := strings.TrimSuffix(strings.ToLower(host), ".")
	if name == "" {
		return fmt.Errorf("%w: empty host", ErrURLNotAllowed)
	}
	if blockedHostnames[name] || strings.HasSuffix(name, ".localhost") || strings.HasSuffix(name, ".internal") {
		return fmt.Errorf("%w: host %q", ErrURLNotAllowed, host)
	}
	if addr, err := netip.ParseAddr(strings.Trim(name, "[]")); err == nil && isBlockedAddr(addr) {
		return fmt.Errorf("%w: address %s", ErrURLNotAllowed, addr)
	}
	return nil
}

// guardDial is a net.Dialer Control hook. It runs for every connection,
// after DNS resolution, so redirects and rebinding cannot reach blocked
// addresses.
func guardDial(_, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: unparseable address %q", ErrURLNotAllowed, address)
	}
	if isBlockedAddr(addrPort.Addr()) {
		return fmt.Errorf("%w: address %s", ErrURLNotAllowed, addrPort.Addr())
	}
	return nil
}

// thisNetwork is 0.0.0.0/8, which many stacks route to the local host.
var thisNetwork = netip.MustParsePrefix("0.0.0.0/8")

func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return thisNetwork.Contains(addr) ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified()
}
