// Package http exposes the catalog over a REST surface: CRUD routes under
// a configurable base path plus static serving of stored assets under
// /uploads. Multipart parsing, identity extraction and error-to-status
// mapping all live here; the service below never sees a request.
package http
