package argument

import (
	"fmt"
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaseSchema(t *testing.T) []Field {
	t.Helper()
	return []Field{
		{Name: "ip", Codec: StringCodec{}},
		{Name: "mac", Codec: StringCodec{}},
	}
}

// makeLeases builds a batch shaped like a real lease table: many short
// records with random address and identifier strings.
func makeLeases(n int, rng *rand.Rand) []Record {
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		ip := fmt.Sprintf("%d.%d.%d.%d", rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256))
		mac := fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
			rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256), rng.Intn(256))
		records = append(records, Record{"ip": ip, "mac": mac})
	}
	return records
}

func TestRecordListRoundTrip(t *testing.T) {
	codec, err := NewRecordListCodec([]Field{{Name: "thing", Codec: StringCodec{}}})
	require.NoError(t, err)

	example := []Record{{"thing": "one"}, {"thing": "two"}}
	encoded, err := codec.Encode(example)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, example, decoded)
}

func TestRecordListRoundTripsMixedFieldCodecs(t *testing.T) {
	codec, err := NewRecordListCodec([]Field{
		{Name: "address", Codec: IPAddressCodec{}},
		{Name: "hostname", Codec: StringCodec{}},
	})
	require.NoError(t, err)

	example := []Record{
		{"address": netip.MustParseAddr("10.0.0.1"), "hostname": "rack-1"},
		{"address": netip.MustParseAddr("fd00::2"), "hostname": "rack-2"},
	}
	encoded, err := codec.Encode(example)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, example, decoded)
}

func TestRecordListEmptyBatch(t *testing.T) {
	codec, err := NewRecordListCodec(leaseSchema(t))
	require.NoError(t, err)

	encoded, err := codec.Encode([]Record{})
	require.NoError(t, err)
	assert.Empty(t, encoded)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Len(t, decoded, 0)
}

func TestRecordListRejectsMissingField(t *testing.T) {
	codec, err := NewRecordListCodec(leaseSchema(t))
	require.NoError(t, err)

	_, err = codec.Encode([]Record{{"ip": "10.0.0.1"}})
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), `"mac"`)
}

func TestRecordListRejectsNonBatch(t *testing.T) {
	codec, err := NewRecordListCodec(leaseSchema(t))
	require.NoError(t, err)

	_, err = codec.Encode("not a batch")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRecordListRejectsTruncatedWire(t *testing.T) {
	codec, err := NewRecordListCodec(leaseSchema(t))
	require.NoError(t, err)

	encoded, err := codec.Encode([]Record{{"ip": "10.0.0.1", "mac": "aa:bb:cc:dd:ee:ff"}})
	require.NoError(t, err)

	_, err = codec.Decode(encoded[:len(encoded)-3])
	require.ErrorIs(t, err, ErrMalformedWire)
}

func TestRecordListRejectsBadSchema(t *testing.T) {
	_, err := NewRecordListCodec(nil)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewRecordListCodec([]Field{
		{Name: "ip", Codec: StringCodec{}},
		{Name: "ip", Codec: StringCodec{}},
		{Name: "mac"},
	})
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), `duplicate field "ip"`)
	assert.Contains(t, err.Error(), `nil codec`)
}

func TestCompressedRecordListRoundTrip(t *testing.T) {
	codec, err := NewCompressedRecordListCodec(leaseSchema(t))
	require.NoError(t, err)

	example := []Record{{"ip": "10.78.45.9", "mac": "aa:bb:cc:dd:ee:ff"}}
	encoded, err := codec.Encode(example)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, example, decoded)
}

func TestCompressedRecordListRejectsBadWire(t *testing.T) {
	codec, err := NewCompressedRecordListCodec(leaseSchema(t))
	require.NoError(t, err)

	_, err = codec.Decode([]byte("definitely not zlib"))
	require.ErrorIs(t, err, ErrMalformedWire)
}

func TestCompressionIsWorthIt(t *testing.T) {
	// Create 3500 leases. We can go a fair bit higher and still satisfy
	// the post-conditions, but the randomness means we can't be sure
	// about test stability that close to the limit.
	rng := rand.New(rand.NewSource(1))
	leases := makeLeases(3500, rng)

	schema := leaseSchema(t)
	plain, err := NewRecordListCodec(schema)
	require.NoError(t, err)
	compressed, err := NewCompressedRecordListCodec(schema)
	require.NoError(t, err)

	encodedUncompressed, err := plain.Encode(leases)
	require.NoError(t, err)
	encodedCompressed, err := compressed.Encode(leases)
	require.NoError(t, err)

	// The encoded leases compress to less than half the size of the
	// uncompressed encoding, and under the message ceiling of 64k.
	assert.Less(t, len(encodedCompressed), len(encodedUncompressed)/2)
	assert.Less(t, len(encodedCompressed), 65536)

	decoded, err := compressed.Decode(encodedCompressed)
	require.NoError(t, err)
	assert.Equal(t, leases, decoded)
}
