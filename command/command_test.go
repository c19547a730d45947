package command

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rack-rpc/argument"
	"rack-rpc/box"
)

func powerQuery(t *testing.T) *Command {
	t.Helper()
	state, err := argument.NewChoiceCodec(map[string][]byte{
		"on":  []byte("\x01"),
		"off": []byte("\x00"),
	})
	require.NoError(t, err)
	return &Command{
		Name: "power-query",
		Arguments: []argument.Field{
			{Name: "system_id", Codec: argument.StringCodec{}},
			{Name: "address", Codec: argument.IPAddressCodec{}},
		},
		Response: []argument.Field{
			{Name: "state", Codec: state},
		},
	}
}

func TestMarshalArgsRoundTrip(t *testing.T) {
	cmd := powerQuery(t)
	args := map[string]any{
		"system_id": "4y3h8a",
		"address":   netip.MustParseAddr("10.0.1.17"),
	}

	data, err := cmd.MarshalArgs(args)
	require.NoError(t, err)

	decoded, err := cmd.UnmarshalArgs(data)
	require.NoError(t, err)
	assert.Equal(t, args, decoded)
}

func TestMarshalResponseRoundTrip(t *testing.T) {
	cmd := powerQuery(t)

	data, err := cmd.MarshalResponse(map[string]any{"state": "on"})
	require.NoError(t, err)

	decoded, err := cmd.UnmarshalResponse(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"state": "on"}, decoded)
}

func TestMarshalArgsRejectsMissingArgument(t *testing.T) {
	cmd := powerQuery(t)

	_, err := cmd.MarshalArgs(map[string]any{"system_id": "4y3h8a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"address"`)
}

func TestMarshalArgsSurfacesCodecErrors(t *testing.T) {
	cmd := powerQuery(t)

	_, err := cmd.MarshalArgs(map[string]any{
		"system_id": "4y3h8a",
		"address":   "not an address",
	})
	require.ErrorIs(t, err, argument.ErrTypeMismatch)
}

func TestUnmarshalArgsIgnoresUnknownFields(t *testing.T) {
	cmd := powerQuery(t)
	args := map[string]any{
		"system_id": "4y3h8a",
		"address":   netip.MustParseAddr("10.0.1.17"),
	}
	data, err := cmd.MarshalArgs(args)
	require.NoError(t, err)

	// Re-encode with an extra field a newer peer might send.
	b, rest, err := box.Parse(data)
	require.NoError(t, err)
	require.Empty(t, rest)
	require.NoError(t, b.Set("future_field", []byte("whatever")))
	data, err = b.Serialize()
	require.NoError(t, err)

	decoded, err := cmd.UnmarshalArgs(data)
	require.NoError(t, err)
	assert.Equal(t, args, decoded)
}

func TestUnmarshalArgsRejectsTrailingBytes(t *testing.T) {
	cmd := powerQuery(t)
	data, err := cmd.MarshalArgs(map[string]any{
		"system_id": "4y3h8a",
		"address":   netip.MustParseAddr("10.0.1.17"),
	})
	require.NoError(t, err)

	_, err = cmd.UnmarshalArgs(append(data, 0x00))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing")
}

func TestMarshalArgsEnforcesMessageCeiling(t *testing.T) {
	cmd := &Command{
		Name: "bulk",
		Arguments: []argument.Field{
			{Name: "one", Codec: argument.BytesCodec{}},
			{Name: "two", Codec: argument.BytesCodec{}},
		},
	}

	_, err := cmd.MarshalArgs(map[string]any{
		"one": make([]byte, box.MaxValueLength),
		"two": make([]byte, box.MaxValueLength),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ceiling")
}

func TestTable(t *testing.T) {
	cmd := powerQuery(t)
	table, err := NewTable(cmd)
	require.NoError(t, err)

	got, ok := table.Lookup("power-query")
	require.True(t, ok)
	assert.Same(t, cmd, got)

	_, ok = table.Lookup("power-cycle")
	assert.False(t, ok)
}

func TestTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable(powerQuery(t), powerQuery(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
