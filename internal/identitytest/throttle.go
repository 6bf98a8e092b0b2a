package identitytest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errThrottled = errors.New("identitytest: too many login attempts")

// loginThrottle counts failed logins per identifier in fixed Redis windows.
type loginThrottle struct {
	rdb    redis.UniversalClient
	max    int
	window time.Duration
}

func throttleKey(identifier string) string {
	return "identitytest:login:" + identifier
}

// check returns errThrottled once identifier has used up its failures for the window.
func (t *loginThrottle) check(ctx context.Context, identifier string) error {
	count, err := t.rdb.Get(ctx, throttleKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read login counter: %w", err)
	}
	if count >= int64(t.max) {
		return errThrottled
	}
	return nil
}

// fail records one failed attempt. The window starts at the first failure.
func (t *loginThrottle) fail(ctx context.Context, identifier string) error {
	key := throttleKey(identifier)
	count, err := t.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("increment login counter: %w", err)
	}
	if count == 1 {
		if err := t.rdb.Expire(ctx, key, t.window).Err(); err != nil {
			return fmt.Errorf("expire login counter: %w", err)
		}
	}
	return nil
}

func (t *loginThrottle) reset(ctx context.Context, identifier string) error {
	if err := t.rdb.Del(ctx, throttleKey(identifier)).Err(); err != nil {
		return fmt.Errorf("reset login counter: %w", err)
	}
	return nil
}
