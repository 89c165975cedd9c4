package utils

import (
	"net"
	"strings"
)

// Cloudflare WARP, Tailscale and carrier-grade NATs hand out addresses here.
var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp"}

// ShouldForceRelay checks if the system is likely behind a restrictive VPN or CGNAT
// and returns true if we should force TURN usage.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		// Ignore loopback and down interfaces
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			addrs = nil
		}
		if looksTunnelled(iface.Name, addrs) {
			return true
		}
	}
	return false
}

// looksTunnelled reports whether an interface is a VPN adapter or sits
// inside the CGNAT range, where direct P2P usually fails.
func looksTunnelled(name string, addrs []net.Addr) bool {
	name = strings.ToLower(name)
	for _, hint := range tunnelNames {
		if strings.Contains(name, hint) {
			return true
		}
	}

	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && cgnatBlock.Contains(ip) {
			return true
		}
	}
	return false
}
