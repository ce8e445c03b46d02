// Package pipeline names the workflow steps and builds their stage handlers
// and shared clients from configuration. Both the step process and the
// doctor command resolve handlers here.
package pipeline
