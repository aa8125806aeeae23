package commands

// SourceOptions exports sourceOptions for testing.
var SourceOptions = sourceOptions //nolint:gochecknoglobals // test export

// SharedManager exports sharedManager for testing.
var SharedManager = sharedManager //nolint:gochecknoglobals // test export

// RemoteLocation exports remoteLocation for testing.
var RemoteLocation = remoteLocation //nolint:gochecknoglobals // test export

// BreakingAnalysis exports breakingAnalysis for testing.
var BreakingAnalysis = breakingAnalysis //nolint:gochecknoglobals // test export
