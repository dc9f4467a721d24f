package transport

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rallyscore/go-rallysync/codec"
	"github.com/rallyscore/go-rallysync/common/types"
	"github.com/rallyscore/go-rallysync/wire"
)

func TestPairDelivery(t *testing.T) {
	a, b := Pair()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	a.SetLink(LinkUp)

	d := types.NewDelta(types.RandomGameID(), types.OpScore, 0).WithTeam(types.Team2)
	env, err := codec.Encode(wire.TypeLiveDelta, &d)
	require.NoError(t, err)
	require.NoError(t, a.Send(context.Background(), env))

	got := <-b.Inbox()
	require.Equal(t, env.ID, got.ID)
	require.Equal(t, wire.TypeLiveDelta, got.Type)

	back, err := codec.Decode(got)
	require.NoError(t, err)
	require.Equal(t, d.ID, back.(*types.LiveGameDelta).ID)
}

func TestSendWhileDown(t *testing.T) {
	a, _ := Pair()
	env, err := codec.Encode(wire.TypeAck, &wire.Ack{RefID: uuid.New()})
	require.NoError(t, err)
	require.ErrorIs(t, a.Send(context.Background(), env), ErrLinkDown)

	a.SetLink(LinkConnecting)
	require.ErrorIs(t, a.Send(context.Background(), env), ErrLinkDown)
}

func TestLinkNotifications(t *testing.T) {
	a, _ := Pair()
	a.SetLink(LinkConnecting)
	a.SetLink(LinkUp)
	require.Equal(t, LinkConnecting, <-a.Links())
	require.Equal(t, LinkUp, <-a.Links())
}
