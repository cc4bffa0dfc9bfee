package api

// Package api is the HTTP client for the video-download service: metadata
// lookup, job creation, job status polling, and resolution of the
// server-relative file path returned on completion.
