package models

// MatchRecord is a verified pairing between a database window and a capture
// window of the trace being classified.
type MatchRecord struct {
	Video           int
	Quality         Quality
	CandidateOffset int // window offset inside the fingerprint sequence
	CaptureOffset   int // window offset inside the throughput vector
}

// Classification is the outcome of classifying one trace.
type Classification struct {
	Video   int  // predicted video id
	Fast    bool // decided by two consistently spaced matches
	Votes   int  // matches recorded for Video
	Matches int  // matches recorded for all videos
	// Trigger holds the pair of matches that decided a fast classification.
	Trigger *[2]MatchRecord
}
