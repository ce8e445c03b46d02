// Package narration implements step 3: the narration video, a still
// background looped under the narration audio at the requested format.
package narration
