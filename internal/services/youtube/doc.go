// Package youtube uploads finished lessons through the YouTube Data API.
//
// Authentication uses an installed-app OAuth client: OAuthConfig reads the
// client secrets, AuthURL/Exchange produce a refreshable token (stored with
// SaveToken by `lessonreel youtube auth`), and NewUploaderFromFiles builds an
// authenticated service from both files.
package youtube
