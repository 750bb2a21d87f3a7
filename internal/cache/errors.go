package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
)

// Errores de cache.
var (
	ErrNotFound       = errors.New("cache: key not found")
	ErrInvalid        = errors.New("cache: invalid input")
	ErrNotInitialized = errors.New("cache: client not initialized")
	ErrNoEndpoints    = errors.New("cache: no endpoints configured")
)

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Kind clasifica los errores del backend.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindUnreachable
	KindClusterUnavailable
	KindRedirect
	KindInvalid
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindClusterUnavailable:
		return "cluster_unavailable"
	case KindRedirect:
		return "redirect"
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	default:
		return "other"
	}
}

// Retryable indica si la clase consume presupuesto de retry (y eventualmente degrada).
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindUnreachable || k == KindClusterUnavailable
}

// Classify mapea un error crudo del backend a su Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalid):
		return KindInvalid
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed):
		return KindUnreachable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindUnreachable
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "MOVED "), strings.HasPrefix(msg, "ASK "):
		return KindRedirect
	case strings.HasPrefix(msg, "CLUSTERDOWN"), strings.HasPrefix(msg, "TRYAGAIN"),
		strings.HasPrefix(msg, "LOADING"), strings.HasPrefix(msg, "MASTERDOWN"):
		return KindClusterUnavailable
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"):
		return KindUnreachable
	case strings.Contains(msg, "i/o timeout"):
		return KindTimeout
	}
	return KindOther
}

// OpError envuelve un error de una operación del Client con su clasificación.
type OpError struct {
	Op   string
	Key  string
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s %q: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("cache %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
