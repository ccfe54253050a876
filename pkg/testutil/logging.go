package testutil

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Importing testutil keeps test output quiet unless the run is verbose. Trace
// level stays on so log statements still execute.
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	if !isVerbose(os.Args) {
		logrus.SetOutput(io.Discard)
	}
}

func isVerbose(args []string) bool {
	for _, arg := range args {
		if arg == "-test.v" || arg == "-test.v=true" {
			return true
		}
	}
	return false
}
