// Package redis connects the job store to a shared Redis server so job
// status survives process restarts and can be read by several replicas.
//
// TypedStore keeps one JSON value per key with a TTL and an optional
// sorted-set index used to list the most recent entries:
//
//	store := redis.NewTypedStore[job.Job](client, "jobs")
//	err := store.SaveIndexed(ctx, j.ID, j, 24*time.Hour, float64(j.CreatedAt.Unix()))
package redis
