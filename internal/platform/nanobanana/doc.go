// Package nanobanana is the client for the Nano Banana Pro image job API:
// a task is created with a prompt and its state is then read back until
// the vendor reports success or failure. Polling itself lives in
// internal/task; this package performs single requests only.
package nanobanana
