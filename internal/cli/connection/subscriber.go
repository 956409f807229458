package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
)

// Message is one published message received by a subscriber.
type Message struct {
	Channel string `json:"channel" yaml:"channel"`
	Payload string `json:"payload" yaml:"payload"`
}

// Subscribe opens a dedicated connection to addr, subscribes to channel and
// calls fn for every message until ctx is done or the server hangs up.
//
// Push lines are not RESP frames, so this speaks the wire protocol directly
// instead of going through Client.
func Subscribe(ctx context.Context, addr, channel string, fn func(Message)) error {
	d := net.Dialer{Timeout: DefaultTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.Write(EncodeCommand("subscribe", channel)); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	r := bufio.NewReader(conn)
	line, err := readLine(r)
	if err != nil {
		return fmt.Errorf("read subscribe reply: %w", err)
	}
	if strings.HasPrefix(line, "-") {
		return errors.New(line[1:])
	}

	for {
		line, err := readLine(r)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if msg, ok := ParseMessage(channel, line); ok {
			fn(msg)
		}
	}
}

// ParseMessage extracts the payload from a push line for channel.
func ParseMessage(channel, line string) (Message, bool) {
	prefix := "Message from " + channel + ": "
	if !strings.HasPrefix(line, prefix) {
		return Message{}, false
	}
	return Message{Channel: channel, Payload: line[len(prefix):]}, true
}

// EncodeCommand renders args as a RESP multibulk request.
func EncodeCommand(args ...string) []byte {
	var b strings.Builder
	b.WriteString("*" + strconv.Itoa(len(args)) + "\r\n")
	for _, a := range args {
		b.WriteString("$" + strconv.Itoa(len(a)) + "\r\n")
		b.WriteString(a)
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

// String renders the message as the server's push line, without CRLF.
func (m Message) String() string {
	return "Message from " + m.Channel + ": " + m.Payload
}
