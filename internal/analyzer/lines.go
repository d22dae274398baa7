package analyzer

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// lineCounter counts lines the way universal-newline text reading splits them:
// "\n", "\r\n" and a lone "\r" each end a line, and trailing bytes after the last
// terminator form one more line.
type lineCounter struct {
	lines   int
	pending bool
	afterCR bool
}

func (c *lineCounter) Write(p []byte) (int, error) {
	for _, b := range p {
		switch b {
		case '\n':
			if c.afterCR {
				c.afterCR = false
				continue
			}
			c.lines++
			c.pending = false
		case '\r':
			c.lines++
			c.pending = false
			c.afterCR = true
		default:
			c.afterCR = false
			c.pending = true
		}
	}
	return len(p), nil
}

func (c *lineCounter) Count() int {
	if c.pending {
		return c.lines + 1
	}
	return c.lines
}

// textLineWriter decodes its input as UTF-8, substituting U+FFFD for invalid
// sequences, and counts lines of the decoded text. Close must be called before Count.
// The first failure sticks; later writes are discarded and Close reports it.
type textLineWriter struct {
	counter *lineCounter
	w       io.WriteCloser
	err     error
}

func newTextLineWriter() *textLineWriter {
	c := &lineCounter{}
	return &textLineWriter{
		counter: c,
		w:       transform.NewWriter(c, unicode.UTF8.NewDecoder()),
	}
}

func (t *textLineWriter) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

func (t *textLineWriter) Close() error {
	if t.err != nil {
		return t.err
	}
	t.err = t.w.Close()
	return t.err
}

func (t *textLineWriter) Count() int { return t.counter.Count() }

// CountLines reads r to the end and returns its line count.
func CountLines(r io.Reader) (int, error) {
	t := newTextLineWriter()
	if _, err := io.Copy(t, r); err != nil {
		return 0, err
	}
	if err := t.Close(); err != nil {
		return 0, err
	}
	return t.Count(), nil
}
