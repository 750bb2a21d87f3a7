package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/cachegate/internal/metrics"
	"github.com/dropDatabas3/cachegate/internal/observability/logger"
)

// Redirect es una respuesta "<reason> <slot> <host:port>" (MOVED / ASK).
type Redirect struct {
	Reason string
	Slot   int
	Target Endpoint
}

// ParseRedirect parsea el mensaje de error de redirect.
func ParseRedirect(msg string) (Redirect, error) {
	f := strings.Fields(msg)
	if len(f) != 3 {
		return Redirect{}, fmt.Errorf("cache: malformed redirect %q", msg)
	}
	reason := strings.ToUpper(f[0])
	if reason != "MOVED" && reason != "ASK" {
		return Redirect{}, fmt.Errorf("cache: unknown redirect reason %q", f[0])
	}
	slot, err := strconv.Atoi(f[1])
	if err != nil || slot < 0 {
		return Redirect{}, fmt.Errorf("cache: malformed redirect slot %q", f[1])
	}
	ep, err := ParseEndpoint(f[2])
	if err != nil {
		return Redirect{}, err
	}
	return Redirect{Reason: reason, Slot: slot, Target: ep}, nil
}

// operation es una operación reejecutable contra un Backend.
type operation func(ctx context.Context, b Backend) (any, error)

// errRedirectNotFollowed marca los redirects que no llegaron a reejecutarse en el nodo destino.
var errRedirectNotFollowed = errors.New("cache: redirect not followed")

// RedirectFollower reejecuta UNA operación en el nodo indicado por un redirect.
// No reintenta: el retry/backoff pertenece al Client.
type RedirectFollower struct {
	dial DialFunc
	log  *zap.Logger
}

func NewRedirectFollower(dial DialFunc) *RedirectFollower {
	return &RedirectFollower{
		dial: dial,
		log:  logger.Named("cache").With(logger.Component("redirect")),
	}
}

// Follow abre una conexión corta a redirectErr.Target, reejecuta op y cierra la conexión
// independientemente del resultado.
func (f *RedirectFollower) Follow(ctx context.Context, redirectErr error, op operation) (res any, err error) {
	defer func() { metrics.ObserveRedirect(err == nil) }()

	rd, err := ParseRedirect(redirectErr.Error())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errRedirectNotFollowed, err)
	}

	b, err := f.dial(ctx, rd.Target)
	if err != nil {
		return nil, fmt.Errorf("redirect %s: dial: %w: %w", rd.Target, errRedirectNotFollowed, err)
	}
	defer b.Close()

	if rd.Reason == "ASK" {
		if err := b.Asking(ctx); err != nil {
			return nil, fmt.Errorf("redirect %s: asking: %w: %w", rd.Target, errRedirectNotFollowed, err)
		}
	}

	res, err = op(ctx, b)
	if err != nil {
		f.log.Debug("redirected operation failed",
			logger.Endpoint(rd.Target.String()),
			logger.String("reason", rd.Reason),
			logger.Int("slot", rd.Slot),
			logger.Err(err),
		)
		return nil, err
	}
	return res, nil
}
