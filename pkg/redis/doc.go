// Package redis connects to Redis and exposes it as the persistent key-value
// backend of the metering packages.
//
// The package wraps the go-redis client and adds:
//
//   - Connect, which retries the connection using the supplied configuration.
//   - Store, a kv.Store and kv.Swapper implementation. Compare-and-swap runs
//     as a Lua script so the comparison and the write are one server-side step.
//   - Store.Healthcheck, a readiness check that pings the server and loads
//     the compare-and-swap script.
//
// Configuration is described by the Config struct whose fields can be
// populated from environment variables via github.com/caarlos0/env.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    // handle error, probably terminate the application
//	}
//	defer client.Close()
//
//	store := redis.NewStoreWithConfig(client, cfg)
//	ledger := credits.NewLedger(store, recorder)
//
// # Errors
//
// Connection errors are joined with sentinel errors such as ErrRedisNotReady.
// Command failures are joined with kv.ErrStoreUnavailable, which in turn is a
// meter.ErrServerError.
package redis
