package diag

import (
	"fmt"
	"os"
	"testing"
)

func TestClassify(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{fmt.Errorf("run a.db: %w", ErrDegenerateRuntime), CodeDegenerateRuntime},
		{fmt.Errorf("fit: %w", ErrFitNonConvergence), CodeFitNonConvergence},
		{ErrDiscoveryEmpty, CodeDiscoveryEmpty},
		{fmt.Errorf("render: %w", ErrLengthMismatch), CodeLengthMismatch},
		{fmt.Errorf("x.db: %w", ErrMalformedKey), CodeMalformedKey},
		{ErrEmptySeries, CodeEmptySeries},
		{fmt.Errorf("open: %w", statErr), CodeIO},
		{fmt.Errorf("something else"), CodeUnknown},
	}
	for i, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("case %d: Classify(%v) = %s want %s", i, c.err, got, c.want)
		}
	}
}
