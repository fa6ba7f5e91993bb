package transcripts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("embedding endpoint unavailable")
}

// An embedding failure must degrade to an empty result, not an error or a
// panic; the db is never touched.
func TestSearchDegradesOnEmbeddingFailure(t *testing.T) {
	s := NewSearcher(nil, failingEmbedder{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := s.Search(context.Background(), "renewal pipeline", 5, "salesforce", nil); got != nil {
		t.Errorf("chunks = %+v, want empty", got)
	}
}

func TestSearchSkipsBlankQuery(t *testing.T) {
	s := NewSearcher(nil, failingEmbedder{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := s.Search(context.Background(), "   ", 5, "", nil); got != nil {
		t.Errorf("chunks = %+v, want empty", got)
	}
}

func TestVectorLiteral(t *testing.T) {
	cases := []struct {
		in   []float64
		want string
	}{
		{nil, "[]"},
		{[]float64{0.5}, "[0.5]"},
		{[]float64{-0.25, 1, 0.125}, "[-0.25,1,0.125]"},
	}
	for _, tc := range cases {
		if got := vectorLiteral(tc.in); got != tc.want {
			t.Errorf("vectorLiteral(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilterByPerson(t *testing.T) {
	chunks := []Chunk{
		{Text: "Sarah Chen walked through the renewal pipeline."},
		{Text: "Brent covered the support escalations."},
		{Text: "General team standup notes."},
		{Text: "Chen mentioned the enterprise deal again."},
	}

	t.Run("full name and variants", func(t *testing.T) {
		got := FilterByPerson(chunks, "Sarah Chen")
		if len(got) != 2 {
			t.Fatalf("filtered = %d chunks, want 2", len(got))
		}
		if got[0].Text != chunks[0].Text || got[1].Text != chunks[3].Text {
			t.Errorf("filtered = %+v", got)
		}
	})

	t.Run("first name only", func(t *testing.T) {
		got := FilterByPerson(chunks, "Brent")
		if len(got) != 1 || got[0].Text != chunks[1].Text {
			t.Errorf("filtered = %+v", got)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		got := FilterByPerson(chunks, "SARAH")
		if len(got) != 1 {
			t.Errorf("filtered = %d chunks, want 1", len(got))
		}
	})

	t.Run("no match falls back to first three", func(t *testing.T) {
		got := FilterByPerson(chunks, "Zelda")
		if len(got) != 3 {
			t.Fatalf("fallback = %d chunks, want 3", len(got))
		}
		if got[0].Text != chunks[0].Text {
			t.Errorf("fallback order changed: %+v", got)
		}
	})

	t.Run("empty name passes through", func(t *testing.T) {
		if got := FilterByPerson(chunks, "  "); len(got) != len(chunks) {
			t.Errorf("passthrough = %d chunks, want %d", len(got), len(chunks))
		}
	})

	t.Run("small set returned whole on no match", func(t *testing.T) {
		small := chunks[:2]
		if got := FilterByPerson(small, "Zelda"); len(got) != 2 {
			t.Errorf("small fallback = %d chunks, want 2", len(got))
		}
	})
}
