// Package status implements the workflow status file: a single JSON record
// that is overwritten in place on every transition so external callers can
// poll progress without parsing logs.
package status
