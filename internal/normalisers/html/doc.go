// Package html extracts readable text from HTML course content.
//
// Tables are rendered one row per line with cells joined by " | " so
// schedules and grading breakdowns survive as text. Extraction never
// fails: if the DOM pass errors, an alternate converter is tried, and
// regex tag stripping is the last resort.
package html
