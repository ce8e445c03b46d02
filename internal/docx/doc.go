// Package docx writes and reads the small subset of WordprocessingML the
// essay artifact needs: a title and plain paragraphs.
package docx
