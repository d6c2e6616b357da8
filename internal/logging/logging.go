package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath names the log file of one run, e.g. logs/weaponcharts.20260212_213836.log.
func LogFilePath(logsDir, appName string, start time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, start.Format("20060102_150405")),
	)
}
