// Package pubsub implements the channel subscription registry.
//
// A channel is created implicitly by the first Subscribe and is never
// removed by the registry. Publish fans a message out to every sink
// subscribed to the channel at the time of the call; delivery is best effort
// and failures never reach the publisher.
package pubsub
