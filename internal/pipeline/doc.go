// Package pipeline runs one dataset preparation end to end.
//
//	image dir check ─▶ load ─▶ filter ─▶ split ─▶ per split {write .csv, convert ─▶ .txt} ─▶ alphabet ─▶ metrics
//
// Stages run in that order and the first fatal error stops the run. Only
// the filter fans out, on a bounded pool sized by config.Workers. Every
// error returned by Run can be mapped onto a process exit status with
// ExitCode.
package pipeline
