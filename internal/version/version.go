package version

// Version is the current version of partddl.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "0.4.0"

// Name is the application name.
const Name = "partddl"

// Description is a short description of the application.
const Description = "Rebuilds partition DDL from Oracle catalog metadata"
