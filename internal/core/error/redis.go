package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to AppError with appropriate status codes.
// redis.Nil is a normal miss and maps to 404 so callers can tell an expired
// key from a broken connection.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return New(fmt.Errorf("%w: %v", ErrSessionNotFound, err), http.StatusNotFound, RedisNotFoundMessage)
	}

	return New(err, http.StatusBadGateway, RedisErrorMessage)
}
