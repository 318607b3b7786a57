package forwarder

// Version is the forwarder version, sent in the default User-Agent.
const Version = "1.0.0"

// DefaultUserAgent is set on outbound requests whose inbound request had none.
const DefaultUserAgent = "go-zoox_forwarder/" + Version

// Methods whose requests never carry a body upstream.
var bodylessMethods = []string{
	"GET",
	"HEAD",
	"DELETE",
	"TRACE",
}
