package util

import (
	"net"
	"os"

	"github.com/rs/zerolog/log"
)

// GetLocalIP return the first non-loopback IPv4 address
func GetLocalIP() string {
	addressList, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}

	for _, address := range addressList {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}

// GetHost return the host name
func GetHost() (hostName string) {
	hostName, err := os.Hostname()
	if err != nil {
		log.Error().Msgf("get host name error: %v", err)
		return
	}
	return
}
