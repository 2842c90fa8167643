/*
Package log provides structured logging for the DWN node using zerolog.

It wraps zerolog to give JSON-structured logging with component-specific
child loggers, configurable severity levels, and helpers for the common
case of attaching an owner DID, record ID, or message CID to a log line.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	authLog := log.WithComponent("auth")
	authLog.Info().Str("owner", owner).Msg("authorization granted")

	log.WithOwner(owner).Error().Err(err).Msg("records write failed")

Debug level is verbose and development-only; Info is the default production
level; Warn/Error mark conditions worth paging on; Fatal exits the process
and should only be used during startup.
*/
package log
