// Package logging configures the process-wide logrus pipeline: a
// prefixed, color-aware formatter for interactive terminals and a
// rotating file sink otherwise, matching the logging stack the rest of
// the dusk-blockchain family of nodes uses.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	logrus "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger's level, output and
// formatter. Per-actor entries are obtained separately through For.
func Setup(level, path string, maxSizeMB, maxBackups int) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	var out io.Writer
	if path != "" {
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			Compress:   true,
		}
	} else if isatty.IsTerminal(os.Stdout.Fd()) {
		out = colorable.NewColorableStdout()
	} else {
		out = os.Stdout
	}
	logrus.SetOutput(out)

	logrus.SetFormatter(&prefixed.TextFormatter{
		ForceColors:     isatty.IsTerminal(os.Stdout.Fd()) && path == "",
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	return nil
}

// For returns an entry tagged with name under the "prefix" field the
// prefixed formatter prints: logrus.WithFields(logrus.Fields{"prefix": name}).
func For(name string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"prefix": name})
}

// Banner prints the one-line startup banner directly to stdout, bypassing
// logrus so it shows even when log_path redirects everything to a file.
func Banner(version string) {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stdout, ansi.Color("bullet-ledger node "+version, "green+b"))
		return
	}
	fmt.Fprintln(os.Stdout, "bullet-ledger node "+version)
}
