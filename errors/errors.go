package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrUnknownRoom      = fmt.Errorf("unknown room")
	ErrNotJoined        = fmt.Errorf("participant has not joined a room")
	ErrAlreadyJoined    = fmt.Errorf("participant already joined this room")
	ErrNoOpenStroke     = fmt.Errorf("no open stroke")
	ErrInvalidSegment   = fmt.Errorf("invalid segment")
	ErrInvalidRoomID    = fmt.Errorf("invalid room id")
	ErrUnknownFrame     = fmt.Errorf("unknown frame type")
	ErrDispatchCanceled = fmt.Errorf("dispatch canceled")
	ErrSessionClosed    = fmt.Errorf("session closed")
	ErrSinkClosed       = fmt.Errorf("sink closed")
	ErrSinkFull         = fmt.Errorf("sink buffer full")
)
