package lease

import (
	"rack-rpc/argument"
	"rack-rpc/command"
)

// UpdateLeasesCommand declares the "update-leases" RPC: the full lease
// table as a batch of (ip, mac) records. The batch can run to thousands of
// records, so the argument rides the compressed record-list codec to stay
// under the transport's single-message ceiling. The response carries no
// fields.
func UpdateLeasesCommand() (*command.Command, error) {
	leases, err := argument.NewCompressedRecordListCodec([]argument.Field{
		{Name: "ip", Codec: argument.StringCodec{}},
		{Name: "mac", Codec: argument.StringCodec{}},
	})
	if err != nil {
		return nil, err
	}
	return &command.Command{
		Name: "update-leases",
		Arguments: []argument.Field{
			{Name: "leases", Codec: leases},
		},
	}, nil
}
