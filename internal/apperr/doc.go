// Package apperr defines the error taxonomy shared by the session, ingestion,
// retrieval and analysis pipelines.
//
// Every pipeline operation returns a plain Go error; when the error carries an
// *Error the HTTP layer maps its Kind to a status code and returns Message as the
// response detail. Callers that prefer graceful degradation (analysis, reply
// generation) check the kind and substitute a fallback value instead.
package apperr
