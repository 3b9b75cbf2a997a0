// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the provider manager, the vocabulary engine and the poster service.
//
// Errors are mapped to status codes by MapErrorToStatusCode. Vendor error
// messages are passed through after redaction together with an actionable
// hint; store and infrastructure errors are replaced by a generic message.
package api
