// Package redisserver serves the keyspace and the subscription registry over
// a RESP2 subset.
//
// Requests may be multibulk arrays or inline lines. Supported commands:
//   - SET, GET, DEL, EXPIRE, TTL
//   - PUBLISH, SUBSCRIBE
//   - PING, QUIT
//
// A connection that subscribes keeps its normal request/reply behavior;
// published messages are pushed to it as plain lines of the form
// "Message from <channel>: <message>\r\n", interleaved between replies.
package redisserver
