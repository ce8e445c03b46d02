// Package textutil provides small text helpers shared by the parameter store
// and the steps: identifier validation for names embedded in file paths,
// slug and title derivation, and rune-safe truncation.
package textutil
