// Package task drives image generation jobs after they are created: Poller
// reads a job's state on a fixed schedule until it reaches a terminal state,
// and Batch runs many create-and-poll pipelines with bounded concurrency.
package task
