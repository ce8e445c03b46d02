// Package essay implements step 1 of the pipeline.
//
// It asks the chat model for a structured essay (title, body, optional quiz),
// writes the DOCX/JSON/metadata/YouTube text artifacts, synthesizes the
// narration MP3 and times it with the configured Transcriber. Each phase is
// skipped when its artifact already exists, so re-running the step resumes
// rather than regenerates.
package essay
