package gateway

import "net/url"

// session is the resumable identity of a gateway session.
// It outlives individual connections and is only touched by the event loop.
type session struct {
	id        string
	seq       int64
	hasSeq    bool
	resumeURL string
}

// observe records a sequence number. The stored value never decreases.
func (s *session) observe(seq int64) {
	if !s.hasSeq || seq > s.seq {
		s.seq = seq
		s.hasSeq = true
	}
}

// sequence returns the last sequence number, or nil if none was seen.
func (s *session) sequence() *int64 {
	if !s.hasSeq {
		return nil
	}
	seq := s.seq
	return &seq
}

// resumable reports whether both a session id and a sequence are known.
func (s *session) resumable() bool {
	return s.id != "" && s.hasSeq
}

func (s *session) reset() {
	*s = session{}
}

// dialURL picks the endpoint for the next connection. A resumable session
// with a resume URL dials that URL, carrying over the query of base when
// the resume URL has none.
func (s *session) dialURL(base string) string {
	if !s.resumable() || s.resumeURL == "" {
		return base
	}
	resume, err := url.Parse(s.resumeURL)
	if err != nil {
		return base
	}
	if resume.RawQuery == "" {
		if b, err := url.Parse(base); err == nil {
			resume.RawQuery = b.RawQuery
			if resume.Path == "" {
				resume.Path = b.Path
			}
		}
	}
	return resume.String()
}
