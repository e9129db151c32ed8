// Package multiredis defines the configuration, error codes and shared helpers used to
// serve several named Redis datasources, each able to route a unit of work to any of
// its logical DBs.
//
// The routing engine lives in subpackages: routing carries the target DB index on a
// context.Context, redis builds go-redis backed handles, router resolves and caches one
// handle per DB, helper adds the DB0..DB15 accessors and registry publishes one router
// per configured datasource.
package multiredis

// Routing model
//
// A datasource in Dynamic mode builds a handle the first time a DB is resolved and keeps
// it for the life of the process. Hits are served without locking; misses serialize on a
// per-datasource mutex and re-check the cache, so each DB is built exactly once. A failed
// build is never cached: the next resolve of the same DB tries again.
//
// A datasource in Static mode only ever serves its default DB. Resolving any other DB
// fails with ErrStaticMode. Redis Cluster datasources are always Static on DB 0.
