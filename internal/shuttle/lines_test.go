package shuttle_test

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"sync-shuttle/internal/shuttle"
)

func TestReadLine(t *testing.T) {
	input := "first\n" + strings.Repeat("x", 100) + "\nlast"
	r := bufio.NewReaderSize(strings.NewReader(input), 16)

	type result struct {
		line    string
		tooLong bool
	}
	var got []result
	for {
		line, tooLong, err := shuttle.ReadLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("ReadLine() error = %v", err)
		}
		if tooLong || len(line) > 0 {
			got = append(got, result{string(line), tooLong})
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	want := []result{{"first\n", false}, {"", true}, {"last", false}}
	if len(got) != len(want) {
		t.Fatalf("ReadLine() results = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
