package runtime

import (
	"board-lab/domain"
	"board-lab/errors"
	"board-lab/mocks"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestSession(t *testing.T) (*Session, *mocks.MockIDispatcher) {
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockIDispatcher(ctrl)
	return NewSession("p1", dispatcher, logs.GetLoggerFromLevel(slog.LevelDebug)), dispatcher
}

func TestSession_SubmitBeforeJoin(t *testing.T) {
	req := require.New(t)
	session, _ := newTestSession(t)
	ctx := context.Background()

	// Given a session that never joined, then every submission is refused
	req.ErrorIs(session.BeginStroke(ctx), errors.ErrNotJoined)
	req.ErrorIs(session.Undo(ctx), errors.ErrNotJoined)
	req.ErrorIs(session.Redo(ctx), errors.ErrNotJoined)
	req.ErrorIs(session.EndStroke(ctx), errors.ErrNotJoined)

	// And leaving is a no-op
	req.NoError(session.Leave(ctx))
}

func TestSession_JoinAndDraw(t *testing.T) {
	req := require.New(t)
	session, dispatcher := newTestSession(t)
	ctx := context.Background()
	seg := domain.Segment{X0: 1, Y0: 2, X1: 3, Y1: 4, Color: "#000000", Width: 2}

	gomock.InOrder(
		dispatcher.EXPECT().Dispatch(ctx, gomock.AssignableToTypeOf(domain.JoinCommand{})).
			DoAndReturn(func(_ context.Context, cmd domain.Command) error {
				req.Equal(domain.RoomID("r1"), cmd.RoomID())
				req.Equal(domain.ParticipantID("p1"), cmd.Actor())
				return nil
			}),
		dispatcher.EXPECT().Dispatch(ctx, gomock.AssignableToTypeOf(domain.BeginStrokeCommand{})).Return(nil),
		dispatcher.EXPECT().Dispatch(ctx, domain.DrawSegmentCommand{
			Envelope: domain.Envelope{Room: "r1", Participant: "p1"},
			Segment:  seg,
		}).Return(nil),
		dispatcher.EXPECT().Dispatch(ctx, domain.EndStrokeCommand{
			Envelope: domain.Envelope{Room: "r1", Participant: "p1"},
		}).Return(nil),
	)

	req.NoError(session.Join(ctx, "r1"))
	req.NoError(session.BeginStroke(ctx))
	req.NoError(session.Draw(ctx, seg))
	req.NoError(session.EndStroke(ctx))
	req.Equal(domain.RoomID("r1"), session.RoomID())
}

func TestSession_JoinSameRoomTwice(t *testing.T) {
	req := require.New(t)
	session, dispatcher := newTestSession(t)
	ctx := context.Background()

	// Given one join dispatched only
	dispatcher.EXPECT().Dispatch(ctx, gomock.AssignableToTypeOf(domain.JoinCommand{})).Return(nil).Times(1)

	req.NoError(session.Join(ctx, "r1"))
	req.NoError(session.Join(ctx, "r1"))
}

func TestSession_SwitchRoomLeavesPrevious(t *testing.T) {
	req := require.New(t)
	session, dispatcher := newTestSession(t)
	ctx := context.Background()

	gomock.InOrder(
		dispatcher.EXPECT().Dispatch(ctx, gomock.AssignableToTypeOf(domain.JoinCommand{})).Return(nil),
		dispatcher.EXPECT().Dispatch(ctx, domain.LeaveCommand{
			Envelope: domain.Envelope{Room: "r1", Participant: "p1"},
		}).Return(nil),
		dispatcher.EXPECT().Dispatch(ctx, gomock.AssignableToTypeOf(domain.JoinCommand{})).
			DoAndReturn(func(_ context.Context, cmd domain.Command) error {
				req.Equal(domain.RoomID("r2"), cmd.RoomID())
				return nil
			}),
	)

	req.NoError(session.Join(ctx, "r1"))
	req.NoError(session.Join(ctx, "r2"))
	req.Equal(domain.RoomID("r2"), session.RoomID())
}

func TestSession_InvalidInputsAreRejected(t *testing.T) {
	req := require.New(t)
	session, dispatcher := newTestSession(t)
	ctx := context.Background()
	dispatcher.EXPECT().Dispatch(ctx, gomock.Any()).Return(nil).Times(1)

	req.ErrorIs(session.Join(ctx, ""), errors.ErrInvalidRoomID)
	req.NoError(session.Join(ctx, "r1"))
	req.ErrorIs(session.Draw(ctx, domain.Segment{Color: "#000", Width: -1}), errors.ErrInvalidSegment)
}

func TestSession_CloseLeavesOnce(t *testing.T) {
	req := require.New(t)
	session, dispatcher := newTestSession(t)
	ctx := context.Background()

	dispatcher.EXPECT().Dispatch(ctx, gomock.AssignableToTypeOf(domain.JoinCommand{})).Return(nil)
	// Then a single leave is dispatched
	dispatcher.EXPECT().Dispatch(ctx, gomock.AssignableToTypeOf(domain.LeaveCommand{})).Return(nil).Times(1)

	req.NoError(session.Join(ctx, "r1"))

	// When the participant leaves, then disconnects twice
	req.NoError(session.Leave(ctx))
	req.NoError(session.Close(ctx))
	req.NoError(session.Close(ctx))

	// And the closed session refuses any further work
	req.ErrorIs(session.Join(ctx, "r2"), errors.ErrSessionClosed)
	req.ErrorIs(session.Undo(ctx), errors.ErrSessionClosed)
}
