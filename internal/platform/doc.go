package platform

// Package platform contains OS integration: video URL validation, filesystem
// helpers for retrieved files, and opening/revealing files in the desktop shell.
