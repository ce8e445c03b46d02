// Package artifacts names the files a workflow produces and where they live.
// Steps and the orchestrator resolve every path through Layout so the folder
// structure is defined once.
package artifacts
