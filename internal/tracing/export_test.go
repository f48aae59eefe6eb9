package tracing

import "log"

// resetGlobals undoes InstallGlobalPipeline and InstallLogBridge.
func resetGlobals() {
	global.Store(nil)
	bridgeInstalled.Store(false)
	log.SetOutput(logDefaultOutput)
	log.SetFlags(log.LstdFlags)
}

var logDefaultOutput = log.Writer()
