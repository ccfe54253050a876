package solana

import "github.com/pkg/errors"

// Cluster names a Solana network.
type Cluster string

const (
	ClusterDevnet  Cluster = "devnet"
	ClusterTestnet Cluster = "testnet"
	ClusterMainnet Cluster = "mainnet-beta"
)

// Endpoint is the public RPC endpoint for the cluster.
func (c Cluster) Endpoint() string {
	switch c {
	case ClusterMainnet:
		return "https://api.mainnet-beta.solana.com"
	case ClusterTestnet:
		return "https://api.testnet.solana.com"
	default:
		return "https://api.devnet.solana.com"
	}
}

func (c Cluster) Validate() error {
	switch c {
	case ClusterDevnet, ClusterTestnet, ClusterMainnet:
		return nil
	}
	return errors.Errorf("unknown cluster: %s", c)
}
