// Package database provides SQLite-based storage for MatSight analyses.
//
// The AnalysisDB stores every analysis received from the remote service
// together with the summary produced for it. Results are keyed by a UUID and
// indexed by image key and by the SHA3 hash of the image bytes, so that
// re-processing identical bytes can be skipped and earlier analyses of an
// image can be compared.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
