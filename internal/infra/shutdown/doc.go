// Package shutdown coordinates graceful process termination.
//
// Components register hooks as they start; on SIGINT, SIGTERM or an
// explicit Trigger the hooks run in reverse registration order under a
// shared deadline, so listeners stop before the state they serve.
package shutdown
