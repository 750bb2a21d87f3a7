package cache

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultEndpoint se usa cuando no hay endpoints configurados.
const DefaultEndpoint = "redis-node-0:6379"

const defaultPort = 6379

// Endpoint identifica un nodo del cluster. Inmutable una vez parseado.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint parsea "host:port". Sin puerto usa 6379.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, fmt.Errorf("%w: empty endpoint", ErrInvalid)
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// sin puerto: "redis-node-0"
		if strings.Contains(err.Error(), "missing port") {
			return Endpoint{Host: s, Port: defaultPort}, nil
		}
		return Endpoint{}, fmt.Errorf("%w: endpoint %q: %v", ErrInvalid, s, err)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: endpoint %q: empty host", ErrInvalid, s)
	}
	if portStr == "" {
		return Endpoint{Host: host, Port: defaultPort}, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: endpoint %q: bad port", ErrInvalid, s)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// ParseEndpoints parsea una lista "host:port,host:port". Lista vacía => DefaultEndpoint.
func ParseEndpoints(csv string) ([]Endpoint, error) {
	var out []Endpoint
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		ep, err := ParseEndpoint(part)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	if len(out) == 0 {
		ep, _ := ParseEndpoint(DefaultEndpoint)
		out = append(out, ep)
	}
	return out, nil
}

// Topology es la lista ordenada de endpoints más el índice del activo.
// Es un valor: el Client la reemplaza completa cuando cambia el nodo activo.
type Topology struct {
	Endpoints []Endpoint
	Active    int
	// Reachable es false cuando ningún endpoint respondió; Active apunta igual al primero.
	Reachable bool
}

// ActiveEndpoint retorna el endpoint activo (zero value si la topología está vacía).
func (t Topology) ActiveEndpoint() Endpoint {
	if t.Active < 0 || t.Active >= len(t.Endpoints) {
		return Endpoint{}
	}
	return t.Endpoints[t.Active]
}

func (t Topology) addrs() []string {
	out := make([]string, len(t.Endpoints))
	for i, ep := range t.Endpoints {
		out[i] = ep.String()
	}
	return out
}
