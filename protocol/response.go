package protocol

import "strings"

type Kind int

const (
	// Info lines are advisory and never end a handshake.
	Info Kind = iota
	// Success is a '+' line.
	Success
	// Failure is a '-' line; the rest of the line is the device's message.
	Failure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "info"
	}
}

// Response is one line received from the device.
type Response struct {
	Kind Kind
	// line without its terminator, prefix included
	Text string
}

// Classify decides the kind of a received line by its first character.
func Classify(line string) Response {
	text := strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(text, "+"):
		return Response{Kind: Success, Text: text}
	case strings.HasPrefix(text, "-"):
		return Response{Kind: Failure, Text: text}
	default:
		return Response{Kind: Info, Text: text}
	}
}

// Terminal reports whether the response ends a handshake.
func (r Response) Terminal() bool {
	return r.Kind != Info
}
