// Package sanitizer normalizes user supplied values before validation and
// storage.
//
// All functions are idempotent. Invalid input is handled gracefully, usually
// by returning the trimmed input so that validation can reject it with a
// useful message.
//
// Normalization includes:
//   - Phone numbers: E.164 format, Indian numbers assumed when no country code is given
//   - Names and free text: whitespace collapsed and trimmed
//   - City keys: lowercase letters joined by underscores, "New  Delhi" becomes "new_delhi"
//   - Vehicle numbers: uppercase letters and digits only, "mh-12 ab 1234" becomes "MH12AB1234"
//   - Emails: trimmed and lowercased
package sanitizer
