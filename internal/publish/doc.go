// Package publish pushes a composed lesson to its destinations: Cloud Storage
// for the video and thumbnail, and YouTube for the video itself.
//
// Both destinations are opt-in through config. Clients are built on first
// use so a misconfigured destination surfaces as a Publish error instead of
// blocking the rest of the pipeline. Re-publishing is safe: storage uploads
// are create-only and an existing youtube_url.txt short-circuits the upload.
package publish
