package transport

import (
	"net"
	"strings"
)

// cgnatBlock is 100.64.0.0/10, used by carrier grade NAT, Tailscale and WARP.
var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// ShouldForceRelay reports whether the host looks like it sits behind a VPN
// or CGNAT, where direct paths usually fail and TURN is the better bet.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			addrs = nil
		}
		ips := make([]net.IP, 0, len(addrs))
		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				ips = append(ips, v.IP)
			case *net.IPAddr:
				ips = append(ips, v.IP)
			}
		}

		if restrictedInterface(iface.Name, ips) {
			return true
		}
	}
	return false
}

// restrictedInterface matches tunnel style interface names and CGNAT addresses.
func restrictedInterface(name string, ips []net.IP) bool {
	name = strings.ToLower(name)
	for _, marker := range []string{"tun", "tap", "wg", "ppp", "warp"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	for _, ip := range ips {
		if cgnatBlock.Contains(ip) {
			return true
		}
	}
	return false
}
