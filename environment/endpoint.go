package environment

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var ErrNotEnoughEndpoints = errors.New("not enough client endpoints")

// Endpoint identifies one environment server instance.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the base HTTP URL of the endpoint.
func (e Endpoint) URL() string {
	return "http://" + e.String()
}

// ParseEndpoint parses a "host:port" pair. A bare port means localhost.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, fmt.Errorf("empty endpoint")
	}
	if !strings.Contains(s, ":") {
		s = "127.0.0.1:" + s
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in endpoint %q", s)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return Endpoint{Host: host, Port: port}, nil
}

// ParseEndpoints parses each entry, splitting comma-separated lists.
func ParseEndpoints(values []string) ([]Endpoint, error) {
	endpoints := []Endpoint{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			ep, err := ParseEndpoint(part)
			if err != nil {
				return nil, err
			}
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, nil
}
