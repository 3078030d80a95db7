package transport

// Strategy identifies one way of delivering a payload to the provider.
type Strategy string

// Submission strategies, in fallback order.
const (
	StrategyDirect     Strategy = "direct_transfer"
	StrategyCompressed Strategy = "compressed_transfer"
	StrategyStorageRef Strategy = "object_storage_reference"
)

// Probe determines which submission strategies are viable for a given
// payload size against the configured gateway ceiling. It is stateless:
// all answers are pure functions of the construction parameters and the
// size asked about.
type Probe struct {
	maxRequestBytes  int64
	storageAvailable bool
}

// NewProbe creates a probe for a gateway with the given request-body
// ceiling. storageAvailable reports whether object storage credentials
// are configured, which gates the reference-by-URL strategy.
func NewProbe(maxRequestBytes int64, storageAvailable bool) Probe {
	return Probe{
		maxRequestBytes:  maxRequestBytes,
		storageAvailable: storageAvailable,
	}
}

// Ceiling returns the gateway's request-body ceiling in bytes.
func (p Probe) Ceiling() int64 {
	return p.maxRequestBytes
}

// FitsGateway reports whether a payload of the given size can be sent
// through the gateway as a single request body.
func (p Probe) FitsGateway(sizeBytes int64) bool {
	return sizeBytes <= p.maxRequestBytes
}

// StorageAvailable reports whether the object-storage strategy can be
// attempted at all.
func (p Probe) StorageAvailable() bool {
	return p.storageAvailable
}

// Viable returns the strategies currently worth attempting for a payload
// of the given size, in fallback order. Compression is always viable
// until the compressed size is measured; storage reference requires
// configured storage.
func (p Probe) Viable(sizeBytes int64) []Strategy {
	strategies := make([]Strategy, 0, 3)
	if p.FitsGateway(sizeBytes) {
		strategies = append(strategies, StrategyDirect)
	}
	strategies = append(strategies, StrategyCompressed)
	if p.storageAvailable {
		strategies = append(strategies, StrategyStorageRef)
	}
	return strategies
}
