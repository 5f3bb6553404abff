// Package mongo connects to the MongoDB deployment backing the mongo counter store.
//
// Config is read from MONGODB_* environment variables. Connect retries until
// the deployment answers a ping; Healthcheck wraps the same ping as a
// readiness probe.
//
//	db, err := mongo.ConnectDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
package mongo
