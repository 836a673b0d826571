// Package mongo connects to MongoDB with the official v2 driver. It backs
// audit.MongoStorage when METER_AUDIT=mongo.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	storage := audit.NewMongoStorage(db, "")
//	probe := mongo.Healthcheck(db.Client())
//
// Config is read from MONGODB_* environment variables. New retries the initial
// connection and ping until cfg.RetryAttempts is exhausted or ctx is done.
package mongo
