package transport

import (
	"fmt"

	"github.com/haukened/rr-relay/internal/dns/common/log"
)

// NewTransport creates and binds a transport of the given type.
func NewTransport(transportType TransportType, addr string, bufferSize int, logger log.Logger) (PacketTransport, error) {
	switch transportType {
	case TransportUDP:
		t, err := Listen(addr, bufferSize, logger)
		if err != nil {
			return nil, err
		}
		return t, nil

	case TransportTCP:
		return nil, fmt.Errorf("DNS over TCP transport is not supported")

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// GetSupportedTransports returns a list of currently supported transport types.
func GetSupportedTransports() []TransportType {
	return []TransportType{TransportUDP}
}

// IsTransportSupported checks if a given transport type is currently supported.
func IsTransportSupported(transportType TransportType) bool {
	for _, t := range GetSupportedTransports() {
		if t == transportType {
			return true
		}
	}
	return false
}
