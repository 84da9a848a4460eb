package security

import (
	"fmt"
	"net"
	"strconv"
)

// MaxInterfaceNameLength bounds interface names (IFNAMSIZ is 16 on Linux,
// other platforms are shorter or equal; allow headroom for Windows aliases).
const MaxInterfaceNameLength = 64

// ValidateInterfaceName validates an interface name before it is used in a
// filesystem path or passed to an external command.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}
	if len(name) > MaxInterfaceNameLength {
		return fmt.Errorf("interface name too long: %d characters (max %d)", len(name), MaxInterfaceNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid interface name: %s", name)
	}

	// Alphanumeric, dots, hyphens, underscores and colons (aliases) only
	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '-' || char == '_' || char == ':') {
			return fmt.Errorf("invalid character in interface name: %q", char)
		}
	}
	if name[0] == '-' {
		return fmt.Errorf("interface name cannot start with '-': %s", name)
	}

	return nil
}

// ValidateListenAddress validates a local listen address such as the metrics
// endpoint. The host must be an explicit loopback or private address so the
// endpoint is never exposed on a public interface.
func ValidateListenAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if err := validatePortString(port); err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("listen address must name a host: %s", addr)
	}
	if host == "localhost" {
		return nil
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("invalid IP address format: %s", host)
	}
	if ip.IsUnspecified() {
		return fmt.Errorf("unspecified addresses not allowed: %s", host)
	}
	if !ip.IsLoopback() && !isPrivateIP(ip) {
		return fmt.Errorf("only loopback or private listen addresses allowed: %s", host)
	}

	return nil
}

// ValidateProbeAddress validates the UDP probe target used to find the
// egress interface. It must be an IP literal (no DNS lookup is performed)
// outside private, loopback and multicast ranges, otherwise the probe would
// select a local route instead of the default one.
func ValidateProbeAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid probe address %q: %w", addr, err)
	}
	if err := validatePortString(port); err != nil {
		return err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("probe address must be an IP literal: %s", host)
	}
	if ip.IsLoopback() {
		return fmt.Errorf("loopback addresses not allowed: %s", host)
	}
	if ip.IsMulticast() {
		return fmt.Errorf("multicast addresses not allowed: %s", host)
	}
	if ip.IsUnspecified() {
		return fmt.Errorf("unspecified addresses not allowed: %s", host)
	}
	if isPrivateIP(ip) {
		return fmt.Errorf("private addresses not allowed: %s", host)
	}

	return nil
}

// isPrivateIP checks if an IP address is within private/local ranges
func isPrivateIP(ip net.IP) bool {
	privateRanges := []string{
		"10.0.0.0/8",     // RFC 1918 - Private IPv4
		"172.16.0.0/12",  // RFC 1918 - Private IPv4
		"192.168.0.0/16", // RFC 1918 - Private IPv4
		"100.64.0.0/10",  // RFC 6598 - Carrier-grade NAT
		"fc00::/7",       // RFC 4193 - IPv6 Unique Local Addresses
		"fe80::/10",      // RFC 4291 - IPv6 Link-Local
		"169.254.0.0/16", // RFC 3927 - IPv4 Link-Local
	}

	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}

	return false
}

// ValidatePort validates that a port number is within valid range
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", port)
	}
	return nil
}

func validatePortString(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port: %q", port)
	}
	return ValidatePort(n)
}
