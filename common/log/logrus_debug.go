//go:build debug

package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const modulePath = "github.com/sagernet/sing-rpc/"

// Debug builds report the caller of every entry, relative to the working directory
// when possible and with the package path of the function otherwise.
func init() {
	workingDirectory, _ := filepath.Abs(".")
	logrus.StandardLogger().SetReportCaller(true)
	logrus.StandardLogger().Formatter.(*logrus.TextFormatter).CallerPrettyfier = func(frame *runtime.Frame) (function string, file string) {
		location := frame.File
		if relative, err := filepath.Rel(workingDirectory, location); err == nil && !strings.HasPrefix(relative, "..") {
			location = relative
		}
		function = strings.TrimPrefix(frame.Function, modulePath)
		file = " " + location + ":" + strconv.Itoa(frame.Line)
		return
	}
}
