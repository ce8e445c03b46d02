// Package objectstore publishes finished lesson artifacts to Cloud Storage.
// Writes are conditioned on the object not existing; a 412 from the service
// is treated as "already published" rather than a failure.
package objectstore
