// Package httputil provides the JSON response and request helpers shared by
// the API handlers.
//
// Handlers use these helpers instead of writing raw http.ResponseWriter
// calls so that every endpoint answers with the same error envelope.
package httputil
