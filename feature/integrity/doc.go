// Package integrity provides health checks over the reconciliation data.
//
// The glass feature keeps counters correct as facts arrive; this package verifies
// that they still are, and optionally repairs what it finds.
//
// # Checks Provided
//
//   - Schema: the live tables carry every column the models expect.
//   - Duplicates: no batch holds the same line item twice (dedup sweep, dry run unless fixing).
//   - Drift: stored order counters equal the sums of matched items (recompute when fixing).
//
// Reports can be archived as JSON to the MinIO/S3 bucket configured under storage.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks (supports ?fix=true and ?archive=true).
//   - GET /integrity/schema : Runs the schema check.
//   - GET /integrity/drift : Runs the drift audit (supports ?fix=true).
//   - GET /integrity/duplicates : Runs the duplicate sweep (supports ?fix=true).
package integrity
