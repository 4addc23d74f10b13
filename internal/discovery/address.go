package discovery

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/strongdm/devshell/internal/hostenv"
)

// NetInterface is one host interface and the string form of its addresses
// (CIDR notation or a bare IP).
type NetInterface struct {
	Name  string
	Addrs []string
}

// InterfaceLister enumerates host interfaces in kernel order.
type InterfaceLister func() ([]NetInterface, error)

// priorityPrefixes name physical and wireless interfaces across platforms.
var priorityPrefixes = []string{"eth", "en", "wlan", "wl", "wi-fi", "ethernet"}

// HostInterfaces lists the interfaces of the running host.
func HostInterfaces() ([]NetInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]NetInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		entry := NetInterface{Name: iface.Name}
		for _, addr := range addrs {
			entry.Addrs = append(entry.Addrs, addr.String())
		}
		out = append(out, entry)
	}
	return out, nil
}

// ExternalAddress returns a best-effort externally reachable IPv4 address.
// Interface enumeration is tried first, then platform diagnostic commands.
func (d *Discoverer) ExternalAddress(ctx context.Context) (string, bool) {
	if d.Interfaces != nil {
		ifaces, err := d.Interfaces()
		if err != nil {
			d.logf("enumerate interfaces: %v", err)
		} else if ip := pickInterfaceAddress(ifaces); ip != "" {
			return ip, true
		}
	}

	if d.Runner == nil {
		return "", false
	}
	for _, strategy := range addressStrategies(d.Env.Platform) {
		if ctx.Err() != nil {
			return "", false
		}
		res, err := d.Runner.Run(ctx, CommandTimeout, strategy.name, strategy.args...)
		if err != nil {
			d.logf("address strategy %s failed: %v", strategy.name, err)
			continue
		}
		if ip := strategy.extract(res.Output); ip != "" {
			return ip, true
		}
	}
	return "", false
}

// pickInterfaceAddress prefers interfaces with a physical or wireless name
// and falls back to every interface.
func pickInterfaceAddress(ifaces []NetInterface) string {
	for _, iface := range ifaces {
		if !hasPriorityName(iface.Name) {
			continue
		}
		if ip := firstIPv4(iface.Addrs); ip != "" {
			return ip
		}
	}
	for _, iface := range ifaces {
		if ip := firstIPv4(iface.Addrs); ip != "" {
			return ip
		}
	}
	return ""
}

func hasPriorityName(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range priorityPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func firstIPv4(addrs []string) string {
	for _, raw := range addrs {
		ip := parseAddr(raw)
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}

func parseAddr(raw string) net.IP {
	raw = strings.TrimSpace(raw)
	if ip, _, err := net.ParseCIDR(raw); err == nil {
		return ip
	}
	return net.ParseIP(raw)
}

// addressStrategy is one diagnostic command and the parser for its output.
type addressStrategy struct {
	name    string
	args    []string
	extract func(string) string
}

var (
	windowsIPv4Pattern = regexp.MustCompile(`IPv4[^:\r\n]*:\s*(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	srcPattern         = regexp.MustCompile(`\bsrc\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	inetPattern        = regexp.MustCompile(`\binet\s+(?:addr:)?(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
)

func addressStrategies(platform hostenv.Platform) []addressStrategy {
	if platform == hostenv.Windows {
		return []addressStrategy{
			{name: "ipconfig", extract: firstMatch(windowsIPv4Pattern)},
		}
	}
	return []addressStrategy{
		{name: "hostname", args: []string{"-I"}, extract: firstField},
		{name: "ip", args: []string{"route", "get", "1.1.1.1"}, extract: firstMatch(srcPattern)},
		{name: "ifconfig", extract: firstMatch(inetPattern)},
		{name: "ip", args: []string{"-4", "route", "show", "default"}, extract: firstMatch(srcPattern)},
	}
}

func firstMatch(re *regexp.Regexp) func(string) string {
	return func(output string) string {
		for _, m := range re.FindAllStringSubmatch(output, -1) {
			if usableAddress(m[1]) {
				return m[1]
			}
		}
		return ""
	}
}

func firstField(output string) string {
	for _, field := range strings.Fields(output) {
		if usableAddress(field) {
			return field
		}
	}
	return ""
}

// usableAddress rejects loopback, link-local and malformed addresses.
func usableAddress(ip string) bool {
	if !ValidIPv4(ip) {
		return false
	}
	return !strings.HasPrefix(ip, "127.") && !strings.HasPrefix(ip, "169.254.")
}

// ValidIPv4 reports whether s is exactly four dot-separated decimal octets,
// each in 0-255.
func ValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return false
		}
		// Leading zeros read as octal in some resolvers.
		if len(part) > 1 && part[0] == '0' {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// AddressAvailable reports whether ip looks free for devshell to use. An
// address that answers a single echo request is held by another host, so a
// successful ping means not available. Malformed addresses are never
// available and are not pinged.
func (d *Discoverer) AddressAvailable(ctx context.Context, ip string) bool {
	if !ValidIPv4(ip) {
		return false
	}
	if d.Runner == nil {
		return true
	}
	if _, err := d.Runner.Run(ctx, PingTimeout, "ping", pingArgs(d.Env.Platform, ip)...); err != nil {
		return true
	}
	d.logf("address %s answered ping", ip)
	return false
}

func pingArgs(platform hostenv.Platform, ip string) []string {
	switch platform {
	case hostenv.Windows:
		return []string{"-n", "1", "-w", "1000", ip}
	case hostenv.Darwin:
		return []string{"-c", "1", "-W", "1000", ip}
	default:
		return []string{"-c", "1", "-W", "1", ip}
	}
}
