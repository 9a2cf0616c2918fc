// Package logtail reads the trailing portion of the run log and can stream
// appended lines as they arrive. It backs the logs CLI command so a collector
// or conversion run can be watched without opening the log file directly.
package logtail
