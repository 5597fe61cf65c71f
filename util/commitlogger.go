package util

import "bytes"

// CommitLogger collects written bytes and hands every completed line to Committer.
type CommitLogger struct {
	Committer func(p []byte)
	buf       []byte
}

func (l *CommitLogger) Write(p []byte) (n int, err error) {
	l.buf = append(l.buf, p...)
	if bytes.HasSuffix(l.buf, []byte{'\n'}) {
		l.buf = l.buf[:len(l.buf)-1]
		l.Commit()
	}
	return len(p), nil
}

func (l *CommitLogger) Commit() {
	if l.Committer != nil {
		l.Committer(l.buf)
	}
	l.Reset()
}

func (l *CommitLogger) Reset() {
	l.buf = l.buf[:0]
}
