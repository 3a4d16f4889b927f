package common

const (
	// GatewayServiceName is the consul registration name
	GatewayServiceName = "framegate"

	// RedisKeyConnectionTable record every connected peer
	//
	// key: connection id
	//
	// value: last_update_time + host
	RedisKeyConnectionTable = "connection_table"

	// RedisKeyAliveHosts record every alive gateway instance
	//
	// key: host
	//
	// value: last_update_time
	RedisKeyAliveHosts = "alive_hosts"

	// RedisKeyHostConnections prefix of the per-host reverse table
	RedisKeyHostConnections = "connections"
)

const (
	ConnectEvent    = 1
	DisconnectEvent = 2
)
