package version

// Name is the service name reported to tracing and logs.
const Name = "carbonseed-api"

// Version is stamped at build time via -ldflags.
var Version = "dev"
