// Package service contains the application use cases. It ties the vocabulary
// engine, the prompt template and the image job client together with the
// poller and batch coordinator, and keeps a tracker of running tasks.
//
// Services receive their dependencies through constructor injection and
// depend on interfaces where a vendor client sits behind them, so tests can
// substitute fakes.
package service
