package compose

import (
	"sort"
	"strconv"
	"strings"
)

// PortClaim records which services publish a given host port.
type PortClaim struct {
	Port     int
	Protocol string
	Services []string
}

// HostPorts returns every published host port in the file, keyed by
// port/protocol, with the claiming service names.
func (f *File) HostPorts() []PortClaim {
	type key struct {
		port  int
		proto string
	}
	claims := make(map[key][]string)

	for _, name := range f.Services() {
		svc, _ := f.Service(name)
		portList, _ := svc["ports"].([]any)
		for _, entry := range portList {
			for _, p := range parsePortEntry(entry) {
				k := key{p.Port, p.Protocol}
				claims[k] = append(claims[k], name)
			}
		}
	}

	result := make([]PortClaim, 0, len(claims))
	for k, services := range claims {
		sort.Strings(services)
		result = append(result, PortClaim{Port: k.port, Protocol: k.proto, Services: services})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Port != result[j].Port {
			return result[i].Port < result[j].Port
		}
		return result[i].Protocol < result[j].Protocol
	})
	return result
}

// Conflicts returns the port claims held by more than one service.
func (f *File) Conflicts() []PortClaim {
	var conflicts []PortClaim
	for _, claim := range f.HostPorts() {
		if len(claim.Services) > 1 {
			conflicts = append(conflicts, claim)
		}
	}
	return conflicts
}

type hostPort struct {
	Port     int
	Protocol string
}

// parsePortEntry extracts host ports from the port mapping formats
// compose accepts: short syntax ("80", 80), standard mappings
// ("8080:80", "1935:1935/tcp"), host-bound ("127.0.0.1:8080:80"),
// ranges ("9000-9010:9000-9010"), and the long map syntax.
func parsePortEntry(entry any) []hostPort {
	switch v := entry.(type) {
	case int:
		if v > 0 {
			return []hostPort{{Port: v, Protocol: "tcp"}}
		}
	case string:
		return parsePortString(Expand(v))
	case map[string]any:
		proto, _ := v["protocol"].(string)
		if proto == "" {
			proto = "tcp"
		}
		switch p := v["published"].(type) {
		case int:
			return []hostPort{{Port: p, Protocol: proto}}
		case string:
			if port, err := strconv.Atoi(p); err == nil {
				return []hostPort{{Port: port, Protocol: proto}}
			}
		}
	}
	return nil
}

func parsePortString(portStr string) []hostPort {
	proto := "tcp"
	if idx := strings.Index(portStr, "/"); idx != -1 {
		proto = portStr[idx+1:]
		portStr = portStr[:idx]
	}

	parts := strings.Split(portStr, ":")

	var hostPart string
	switch len(parts) {
	case 1:
		hostPart = parts[0]
	case 2:
		hostPart = parts[0]
	case 3:
		// Host-bound: 127.0.0.1:8080:80
		hostPart = parts[1]
	default:
		return nil
	}

	var ports []hostPort
	if strings.Contains(hostPart, "-") {
		rangeParts := strings.Split(hostPart, "-")
		if len(rangeParts) == 2 {
			start, err1 := strconv.Atoi(rangeParts[0])
			end, err2 := strconv.Atoi(rangeParts[1])
			if err1 == nil && err2 == nil && start <= end {
				for port := start; port <= end; port++ {
					ports = append(ports, hostPort{Port: port, Protocol: proto})
				}
			}
		}
		return ports
	}

	if port, err := strconv.Atoi(hostPart); err == nil && port > 0 {
		ports = append(ports, hostPort{Port: port, Protocol: proto})
	}
	return ports
}
