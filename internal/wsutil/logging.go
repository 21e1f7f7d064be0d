// Package wsutil carries the small ambient conveniences every component
// in this daemon shares: the process-wide logger. Grounded on Brightgate
// ap_common/aputil/logging.go, trimmed to a single-daemon process (no
// per-daemon directory tagging, since there is only one daemon here).
package wsutil

import (
	"log"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var atomicLevel = zap.NewAtomicLevel()

func zapTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000"))
}

// NewLogger returns a 'sugared' zap logger for the daemon named name
// (name becomes the logger name printed on every line; this process hosts
// one component tree rather than Brightgate's per-daemon source layout).
// e.g.:
//     2026/07/31 14:35:44     INFO    wsuppd  starting on wlan0
func NewLogger(name string) *zap.SugaredLogger {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = atomicLevel
	zapConfig.DisableStacktrace = true
	zapConfig.EncoderConfig.EncodeTime = zapTimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		log.Panicf("can't zap: %s", err)
	}

	return logger.Sugar().Named(name)
}

// SetLevel adjusts the process-wide log level dynamically, matching
// aputil.LogSetLevel's atomic-level pattern.
func SetLevel(level string) error {
	var newLevel zapcore.Level
	if err := newLevel.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	atomicLevel.SetLevel(newLevel)
	return nil
}
