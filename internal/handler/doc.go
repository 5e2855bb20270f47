// Package handler implements HTTP request handlers for the inventory API.
//
// InventoryHandler exposes the service layer as JSON over HTTP: classes and
// attributes, containment rules, business objects and their navigation,
// special relationships and routes, list type items, pools, templates, and
// data model import and export. Register adds its routes to a ServeMux.
//
// # Errors
//
// Failures are returned as {error, details} JSON. Typed inventory errors
// also carry the class, id and attribute they concern, and map to status
// codes by kind:
//
//	not found                 404
//	invalid argument          400
//	unique value conflict     409
//	operation not permitted   403
//
// Anything else is logged and reported as 500.
//
// # Addressing objects
//
// Object routes are keyed by class and id. The class segment "-" stands for
// "any class" on read routes, for clients that only hold an id.
//
// # Middleware
//
// Chain composes Recover, CORS and Logger around the mux.
package handler
