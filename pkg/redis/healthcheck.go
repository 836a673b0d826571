package redis

import (
	"context"
	"errors"
)

// Healthcheck reports whether the store can serve meter writes: the server
// answers and the compare-and-swap script is loaded into its script cache.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.db.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	if err := casScript.Load(ctx, s.db).Err(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
