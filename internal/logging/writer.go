package logging

import "io"

// multiWriter fans writes out to every added writer, matching
// internal/log/appender.go's MultiWriter.
type multiWriter struct {
	writers []io.Writer
}

func newMultiWriter() *multiWriter { return &multiWriter{} }

func (m *multiWriter) add(w io.Writer) *multiWriter {
	m.writers = append(m.writers, w)
	return m
}

func (m *multiWriter) Write(p []byte) (int, error) {
	var err error
	for _, w := range m.writers {
		if _, e := w.Write(p); e != nil {
			err = e
		}
	}
	return len(p), err
}
