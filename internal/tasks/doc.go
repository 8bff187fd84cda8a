// Package tasks orchestrates dataset uploads and similarity searches against the backend.
//
// # Upload Coordinator
//
// [Coordinator.Submit] validates every [models.UploadJob] locally, then sends
// them one at a time in order. The first failure aborts the rest of the batch
// and is the only error reported. A fully successful batch emits a single
// [ImportSucceeded] update. Query uploads ([Coordinator.SubmitQuery]) are the
// one-job case of the same path.
//
// # Search Session
//
// [Session] fetches the catalog and the latest result concurrently and only
// matches once the catalog has landed:
//
//	Idle -> FetchingCatalog -> AwaitingResult -> Resolved
//	             \                  \
//	              +------------------+--> Failed --(Retry)--> Idle
//
// A result that arrives first is buffered, and a buffered result survives a
// failed attempt so [Session.Retry] only refetches what is missing.
//
// # Progress Reporting
//
// All operations use non-blocking channel sends for [ProgressUpdate]s.
// A nil channel disables reporting.
package tasks
