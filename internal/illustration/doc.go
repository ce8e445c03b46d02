// Package illustration implements step 2: one illustration per narration
// segment plus the workflow thumbnail.
//
// For every timed segment the handler asks the prompt model for a one
// sentence image prompt, appends the essay's shared visual metadata, renders
// the image and stores the PNG next to its prompt text. Images that already
// exist are kept, so a resumed run only fills the gaps. Work fans out through
// an errgroup bounded by images.concurrency; a single failed image fails the
// step once the remaining images have been attempted.
package illustration
