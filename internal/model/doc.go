package model

// Package model defines the data exchanged with the download service (video
// metadata, format options, job descriptors, polled statuses), the local
// retrieval/compression tasks, and the display formatting shared by every
// presenter.
