// Package tasks contains the synchronization orchestrator.
//
// [Syncer.Sync] drives a full library sync for one user: optional purges gate
// the run, then each enabled category (top artists, top tracks, saved tracks,
// playlist tracks) is fetched and bulk-upserted independently. Failures are
// isolated per phase and surface as user-facing messages on the returned
// [SyncReport]; the report is never partially discarded.
package tasks
