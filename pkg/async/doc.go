// Package async provides safe concurrent execution primitives for
// background tasks.
//
// SafeGo runs a function in a goroutine with panic recovery and a
// timeout; the guard uses it to emit security events without blocking
// request handling. WorkerPool is a bounded pool used by the audit
// database sink to absorb write bursts.
package async
