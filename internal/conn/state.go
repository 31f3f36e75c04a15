package conn

// State is a connection's position in the request/response lifecycle.
// States advance strictly forward except for the two error branches.
type State int

const (
	StateConnectionEstablished State = iota
	StateReadingRequestLine
	StateRequestLineDone
	StateReadingHeaders
	StateHeadersDone
	StateReadingBody
	StateRequestReadingDone
	StateSendingResponse
	StateCompleted
	StateClientError
	StateServerError
)

func (s State) String() string {
	switch s {
	case StateConnectionEstablished:
		return "CONNECTION_ESTABLISHED"
	case StateReadingRequestLine:
		return "READING_REQUEST_LINE"
	case StateRequestLineDone:
		return "REQUEST_LINE_DONE"
	case StateReadingHeaders:
		return "READING_HEADERS"
	case StateHeadersDone:
		return "HEADERS_DONE"
	case StateReadingBody:
		return "READING_BODY"
	case StateRequestReadingDone:
		return "REQUEST_READING_DONE"
	case StateSendingResponse:
		return "SENDING_RESPONSE"
	case StateCompleted:
		return "COMPLETED"
	case StateClientError:
		return "CLIENT_ERROR"
	case StateServerError:
		return "SERVER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the connection should be dropped before the
// next loop iteration.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateClientError
}
