package codec

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rallyscore/go-rallysync/common/types"
	"github.com/rallyscore/go-rallysync/wire"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	d := types.NewDelta(types.RandomGameID(), types.OpScore, 42*time.Second).WithTeam(types.Team1)
	env, err := Encode(wire.TypeLiveDelta, &d)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, env.ID)
	require.Equal(t, wire.ProtocolVersion, env.ProtocolVersion)
	require.Equal(t, wire.TypeLiveDelta, env.Type)
	require.Nil(t, env.SessionID)

	got, err := Decode(env)
	require.NoError(t, err)
	back, ok := got.(*types.LiveGameDelta)
	require.True(t, ok)
	require.Equal(t, d.ID, back.ID)
	require.Equal(t, d.GameID, back.GameID)
	require.Equal(t, types.OpScore, back.Op)
	require.Equal(t, types.Team1, back.Team)
	require.Equal(t, 42*time.Second, back.LogicalTime)
}

func TestEncodeSessionStampsID(t *testing.T) {
	session := uuid.New()
	snap := types.LiveGameSnapshot{GameID: types.RandomGameID(), Rules: types.DefaultRuleSet()}
	env, err := EncodeSession(wire.TypeLiveSnapshot, &snap, &session)
	require.NoError(t, err)
	require.NotNil(t, env.SessionID)
	require.Equal(t, session, *env.SessionID)
}

func TestEncodeUnknownType(t *testing.T) {
	_, err := Encode("telepathy", &wire.Empty{})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestEncodeNilPayload(t *testing.T) {
	// request tags carry no body, everything else must
	env, err := Encode(wire.TypeRosterRequest, nil)
	require.NoError(t, err)
	got, err := Decode(env)
	require.NoError(t, err)
	require.IsType(t, &wire.Empty{}, got)

	_, err = Encode(wire.TypeLiveDelta, nil)
	require.ErrorIs(t, err, ErrEncodingFailed)
}

func TestDecodeUnknownTag(t *testing.T) {
	env, err := Encode(wire.TypeAck, &wire.Ack{RefID: uuid.New()})
	require.NoError(t, err)
	env.Type = "carrierPigeon"
	_, err = Decode(env)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDecodeFutureVersion(t *testing.T) {
	env, err := Encode(wire.TypeAck, &wire.Ack{RefID: uuid.New()})
	require.NoError(t, err)
	env.ProtocolVersion = wire.ProtocolVersion + 1
	_, err = Decode(env)
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	// older versions keep decoding
	env.ProtocolVersion = 0
	_, err = Decode(env)
	require.NoError(t, err)
}

func TestDecodeCorruptPayload(t *testing.T) {
	env, err := Encode(wire.TypeLiveSnapshot, &types.LiveGameSnapshot{GameID: types.RandomGameID()})
	require.NoError(t, err)
	env.Payload = []byte(`{"gameId": [1,2,3]`)
	_, err = Decode(env)
	require.ErrorIs(t, err, ErrDecodingFailed)

	env.Payload = nil
	_, err = Decode(env)
	require.ErrorIs(t, err, ErrDecodingFailed)
}

func TestFrameRoundtrip(t *testing.T) {
	up := types.RosterUpsert{Players: []types.Player{{
		ID:           types.RandomPlayerID(),
		Name:         "dana",
		LastModified: time.Now().UTC().Truncate(time.Millisecond),
	}}}
	env, err := Encode(wire.TypeRosterUpsert, &up)
	require.NoError(t, err)

	buf, err := EncodeFrame(env)
	require.NoError(t, err)
	back, err := DecodeFrame(buf)
	require.NoError(t, err)
	require.Equal(t, env.ID, back.ID)
	require.Equal(t, env.Type, back.Type)

	got, err := Decode(back)
	require.NoError(t, err)
	require.Equal(t, &up, got)

	_, err = DecodeFrame([]byte("not json"))
	require.ErrorIs(t, err, ErrDecodingFailed)
}
