// Package params owns the workflow request and the per-workflow parameter
// file that step processes read through the WORKFLOW_PARAMS_FILE environment
// variable.
package params
