package shuttle

import (
	"bufio"
	"errors"
)

// ReadLine returns the next line from r with its newline. A line that does
// not fit in r's buffer is consumed to its end and reported as tooLong with
// no content, so callers can count it and keep reading. err is io.EOF once
// the input is exhausted; line may still hold a final unterminated line.
func ReadLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			tooLong = true
			continue
		}
		if tooLong {
			return nil, true, err
		}
		return chunk, false, err
	}
}
