// Package log defines the structured logging contract shared across the
// module. It carries no implementation beyond the no-op logger; the pipeline
// package provides the resilient dual-sink implementation.
package log
