package egress

import (
	"github.com/vishvananda/netlink"
)

// wellKnownIPv4 are constants always included in the blocked set
// regardless of what's discovered on the host (§4.E step 2): loopback
// representatives, the cloud-metadata address, and common rootless-NAT
// gateways.
var wellKnownIPv4 = []string{
	"127.0.0.1",
	"169.254.169.254",
	"10.0.2.2",      // slirp4netns default gateway
	"10.0.2.3",      // slirp4netns default DNS
	"192.168.127.1", // gvisor-tap-vsock default gateway
}

var wellKnownIPv6 = []string{
	"::1",
}

// HostAddresses enumerates the host's routable IPv4 and IPv6 addresses
// (§4.E step 2), via the kernel's address tables, combined with the
// well-known constants above.
func HostAddresses() (ipv4, ipv6 []string, err error) {
	addrs, err := netlink.AddrList(nil, netlink.FAMILY_ALL)
	if err != nil {
		return nil, nil, err
	}

	v4 := append([]string{}, wellKnownIPv4...)
	v6 := append([]string{}, wellKnownIPv6...)
	for _, a := range addrs {
		if a.IP == nil || a.IP.IsLoopback() {
			continue
		}
		ip := a.IP.String()
		if a.IP.To4() != nil {
			v4 = append(v4, ip)
		} else {
			v6 = append(v6, ip)
		}
	}
	return dedupe(v4), dedupe(v6), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
