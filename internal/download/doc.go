// Package download retrieves finished files from the download service into
// the local download directory. It is the navigation target of a session:
// each file URL handed over becomes a task with its own lifecycle, bounded
// parallelism and progress updates for the UI.
package download
